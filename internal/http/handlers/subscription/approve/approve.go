// Package approve реализует HTTP-обработчик подтверждения оплаты подписки.
//
// Handler принимает идентификатор подписки, выданный платёжным шлюзом после
// одобрения оплаты, и фиксирует локальную запись. Частичный сбой сверки
// (оплата прошла, запись не сохранилась) возвращается отдельным статусом
// и никогда не маскируется под успех.
package approve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/checkout"
)

// Request — данные подтверждённой шлюзом оплаты
type Request struct {
	TierIndex             *int   `json:"tier_index" validate:"required,gte=0,lte=3"`
	GatewaySubscriptionID string `json:"gateway_subscription_id" validate:"required"`
}

// Service описывает интерфейс бизнес-логики подтверждения оплаты.
type Service interface {
	Approve(ctx context.Context, userUID string, tierIndex int, gatewaySubID string) (int, error)
}

// Handler обрабатывает подтверждения оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Подтвердить оплату подписки
// @Description Фиксирует локальную запись подписки после одобрения оплаты шлюзом. Подтверждение по устаревшему тарифу отклоняется.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Данные подтверждённой оплаты"
// @Success 200 {object} map[string]any "Подписка сохранена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Нет открытой сессии или тариф не совпадает"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Частичный сбой сверки"
// @Router /subscriptions/approve [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.approve"
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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.Approve(r.Context(), userUID, *req.TierIndex, req.GatewaySubscriptionID)
	switch {
	case errors.Is(err, checkout.ErrNoSession):
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("no checkout session is open"))
		return
	case errors.Is(err, checkout.ErrStaleSession):
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("checkout session does not match the approved tier, restart checkout"))
		return
	case errors.Is(err, checkout.ErrPartialReconciliation):
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("payment succeeded but the subscription record was not saved, support has been notified"))
		return
	case err != nil:
		log.Error("approve failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not record subscription"))
		return
	}

	log.Info("subscription approved", slog.Int("id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": id,
		"message":         "subscription is active",
	}))
}
