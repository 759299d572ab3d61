// Package checkoutfail реализует HTTP-обработчик фиксации ошибки оформления,
// о которой сообщил платёжный шлюз на стороне клиента.
package checkoutfail

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
)

// Request — описание ошибки со стороны шлюза
type Request struct {
	Reason string `json:"reason"`
}

// Service описывает интерфейс бизнес-логики оформления.
type Service interface {
	Fail(userUID, reason string)
}

// Handler обрабатывает сообщения об ошибках оформления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Зафиксировать ошибку оформления
// @Description Переводит сессию оформления в состояние failed. Повтор начинается новой сессией.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Причина ошибки"
// @Success 200 {object} map[string]any "Сессия переведена в failed"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /subscriptions/checkout/fail [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.checkoutfail"
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

	reason := req.Reason
	if reason == "" {
		reason = "the payment provider reported an error, please try again"
	}
	h.service.Fail(userUID, reason)

	log.Info("checkout session marked as failed")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "checkout marked as failed",
	}))
}
