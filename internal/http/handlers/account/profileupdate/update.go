// Package profileupdate реализует HTTP-обработчик обновления настроек
// подключения к торговому сервису.
package profileupdate

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
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Request — настройки подключения к торговому сервису
type Request struct {
	DisplayName       *string `json:"display_name"`
	TraderServiceName *string `json:"trader_service_name" validate:"omitempty,min=1"`
	TraderSecret      *string `json:"trader_secret" validate:"omitempty,min=1"`
	ServerURL         *string `json:"server_url"`
}

// Service описывает интерфейс обновления профиля.
type Service interface {
	UpdateProfile(ctx context.Context, profile models.Profile) (int, error)
	GetProfile(ctx context.Context, userUID string) (*models.Profile, error)
}

// Handler обрабатывает запросы на обновление профиля.
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
// @Summary Обновить настройки торгового сервиса
// @Description Сохраняет имя сервиса, секрет и адрес сервера для панели управления ботом.
// @Tags Account
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Настройки подключения"
// @Success 200 {object} map[string]any "Профиль обновлён"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /account/profile [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.profileupdate"
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

	profile := models.Profile{
		UserUID:           userUID,
		DisplayName:       req.DisplayName,
		TraderServiceName: req.TraderServiceName,
		TraderSecret:      req.TraderSecret,
		ServerURL:         req.ServerURL,
	}
	rows, err := h.service.UpdateProfile(r.Context(), profile)
	if err != nil {
		log.Error("failed to update profile", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update profile"))
		return
	}
	if rows == 0 {
		log.Error("profile not found")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("profile not found"))
		return
	}

	// Пропущенные поля сохраняют прежние значения, поэтому признак
	// настроенности считается по сохранённому профилю, а не по запросу.
	configured := false
	if stored, err := h.service.GetProfile(r.Context(), userUID); err != nil {
		log.Warn("failed to read updated profile", sl.Err(err))
	} else {
		configured = stored.IsConfigured()
	}

	log.Info("profile updated")
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message":    "profile updated",
		"configured": configured,
	}))
}
