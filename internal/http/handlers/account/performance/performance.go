// Package performance реализует HTTP-обработчик годовой статистики доходности.
package performance

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Service описывает интерфейс чтения статистики доходности.
type Service interface {
	ListPerformance(ctx context.Context) ([]*models.PerformanceRecord, error)
}

// Handler обрабатывает запросы на чтение статистики доходности.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить статистику доходности
// @Description Возвращает годовые показатели прибыли и доходности стратегии.
// @Tags Account
// @Produce  json
// @Success 200 {object} map[string]any "Статистика по годам"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /performance [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.performance"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	records, err := h.service.ListPerformance(r.Context())
	if err != nil {
		log.Error("failed to list performance records", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load performance records"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"performance": records,
	}))
}
