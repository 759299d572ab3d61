// Package cancel реализует HTTP-обработчик отмены подписки.
//
// Отмена необратима и требует явного подтверждения в теле запроса.
package cancel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/reconciler"
)

// Request — подтверждение отмены подписки
type Request struct {
	Confirmed bool `json:"confirmed"`
}

// Service описывает интерфейс бизнес-логики отмены подписки.
type Service interface {
	Cancel(ctx context.Context, userUID string, confirmed bool) (string, error)
}

// Handler обрабатывает запросы на отмену подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Отменяет подписку на платёжном шлюзе и обновляет локальную запись. Требует явного подтверждения.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Подтверждение отмены"
// @Success 200 {object} map[string]any "Подписка отменена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или нет подтверждения"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Подписка не найдена"
// @Failure 502 {object} response.ErrorResponse "Шлюз не смог отменить подписку"
// @Router /subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	status, err := h.service.Cancel(r.Context(), userUID, req.Confirmed)
	switch {
	case errors.Is(err, reconciler.ErrConfirmationRequired):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("cancellation requires explicit confirmation"))
		return
	case errors.Is(err, reconciler.ErrNoSubscription):
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("no subscription to cancel"))
		return
	case err != nil:
		log.Error("cancellation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("could not cancel subscription, try again later"))
		return
	}

	log.Info("subscription cancelled", slog.String("status", status))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status":  status,
		"message": "subscription cancelled",
	}))
}
