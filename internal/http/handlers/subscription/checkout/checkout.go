// Package checkout реализует HTTP-обработчик открытия сессии оформления
// подписки по выбранному тарифу.
//
// Handler валидирует индекс тарифа, открывает сессию через бизнес-логику
// и возвращает её состояние. Ошибка инициализации шлюза не прячется:
// сессия возвращается в состоянии failed с сообщением для пользователя.
package checkout

import (
	"context"
	"encoding/json"
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

// Request — входные данные для открытия сессии оформления
type Request struct {
	TierIndex *int `json:"tier_index" validate:"required,gte=0,lte=3"`
}

// Service описывает интерфейс бизнес-логики оформления.
type Service interface {
	StartSession(ctx context.Context, userUID string, tierIndex int) (checkout.Session, error)
}

// Handler обрабатывает запросы на открытие сессии оформления.
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
// @Summary Открыть сессию оформления подписки
// @Description Открывает сессию оформления для выбранного тарифа. Прежняя сессия пользователя отбрасывается.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Индекс тарифа"
// @Success 200 {object} map[string]any "Состояние сессии"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или тариф"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscriptions/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.checkout"
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

	sess, err := h.service.StartSession(r.Context(), userUID, *req.TierIndex)
	if err != nil {
		// Сессия в состоянии failed возвращается вместе с ошибкой: фронтенд
		// показывает сообщение и кнопку повтора.
		log.Error("failed to open checkout session", sl.Err(err))
		render.JSON(w, r, response.StatusOKWithWarning(map[string]any{
			"session": sess,
		}, sess.Message))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"session": sess,
	}))
}
