// Package status реализует HTTP-обработчик проверки статуса торгового сервиса.
//
// Handler вызывает проверку статуса через панель управления и возвращает
// пересчитанный срез панели. Незаполненный профиль и занятая панель
// отражаются отдельными HTTP-кодами.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/botclient"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/botcontrol"
)

// Service описывает интерфейс панели управления.
type Service interface {
	CheckStatus(ctx context.Context, userUID string) (botcontrol.Snapshot, error)
}

// Handler обрабатывает запросы на проверку статуса.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Проверить статус торгового сервиса
// @Description Запрашивает статус удалённого торгового сервиса и пересчитывает состояние панели.
// @Tags Bot
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Срез панели после проверки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Другая операция ещё выполняется"
// @Failure 422 {object} response.ErrorResponse "Профиль торгового сервиса не заполнен"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /bot/status [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.bot.status"
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

	snap, err := h.service.CheckStatus(r.Context(), userUID)
	switch {
	case errors.Is(err, botclient.ErrConfigurationMissing):
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.StatusOKWithData(map[string]any{
			"panel": snap,
		}))
		return
	case errors.Is(err, botcontrol.ErrOperationInFlight):
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("another operation is already in progress"))
		return
	case err != nil:
		log.Error("status check failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check trading service status"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"panel": snap,
	}))
}
