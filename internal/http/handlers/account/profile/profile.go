// Package profile реализует HTTP-обработчик чтения профиля торгового сервиса.
//
// Секрет торгового сервиса в ответе не отдаётся: наружу уходит только
// признак его наличия.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Service описывает интерфейс чтения профиля.
type Service interface {
	GetProfile(ctx context.Context, userUID string) (*models.Profile, error)
}

// Handler обрабатывает запросы на чтение профиля.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить профиль торгового сервиса
// @Description Возвращает настройки подключения без секрета, только с признаком его наличия.
// @Tags Account
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Профиль"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /account/profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.profile"
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

	profile, err := h.service.GetProfile(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load profile"))
		return
	}

	hasSecret := profile.TraderSecret != nil && *profile.TraderSecret != ""
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"display_name":        profile.DisplayName,
		"trader_service_name": profile.TraderServiceName,
		"server_url":          profile.ServerURL,
		"has_secret":          hasSecret,
		"configured":          profile.IsConfigured(),
	}))
}
