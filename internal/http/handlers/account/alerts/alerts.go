// Package alerts реализует HTTP-обработчик истории торговых сигналов.
package alerts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Service описывает интерфейс чтения истории сигналов.
type Service interface {
	ListAlerts(ctx context.Context, limit, offset int) ([]*models.AlertRecord, error)
}

// Handler обрабатывает запросы на чтение истории сигналов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить историю торговых сигналов
// @Description Возвращает последние сигналы бота с пагинацией limit/offset.
// @Tags Account
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Число записей, по умолчанию 50"
// @Param offset query int false "Смещение, по умолчанию 0"
// @Success 200 {object} map[string]any "История сигналов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /account/alerts [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.alerts"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}

	records, err := h.service.ListAlerts(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list alerts", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load alert history"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"alerts": records,
		"limit":  limit,
		"offset": offset,
	}))
}
