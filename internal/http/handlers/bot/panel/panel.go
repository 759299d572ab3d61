// Package panel реализует HTTP-обработчик получения текущего среза панели
// управления торговым сервисом без обращения к самому сервису.
package panel

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/botcontrol"
)

// Service описывает интерфейс панели управления.
type Service interface {
	Panel(userUID string) botcontrol.Snapshot
}

// Handler обрабатывает запросы на чтение среза панели.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить срез панели управления ботом
// @Description Возвращает состояние панели из памяти без сетевого вызова торгового сервиса.
// @Tags Bot
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Срез панели"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /bot/panel [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bot.panel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	snap := h.service.Panel(userUID)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"panel": snap,
	}))
}
