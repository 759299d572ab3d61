// Package start реализует HTTP-обработчик запуска торгового сервиса.
package start

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/botcontrol"
)

// Service описывает интерфейс панели управления.
type Service interface {
	Start(ctx context.Context, userUID string) (botcontrol.Snapshot, error)
}

// Handler обрабатывает запросы на запуск торгового сервиса.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Запустить торговый сервис
// @Description Отправляет команду запуска. Разрешено только из состояния stopped; после запуска статус перепроверяется автоматически.
// @Tags Bot
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Срез панели после команды"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Действие запрещено или операция уже идёт"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bot/start [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bot.start"
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

	snap, err := h.service.Start(r.Context(), userUID)
	switch {
	case errors.Is(err, botcontrol.ErrActionNotAllowed):
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("start is not allowed in the current state"))
		return
	case errors.Is(err, botcontrol.ErrOperationInFlight):
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("another operation is already in progress"))
		return
	case err != nil:
		log.Error("start failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not start trading service"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"panel": snap,
	}))
}
