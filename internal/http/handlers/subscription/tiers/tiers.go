// Package tiers реализует HTTP-обработчик получения каталога тарифов.
package tiers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/response"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Service описывает интерфейс каталога тарифов.
type Service interface {
	Tiers() []models.PricingTier
}

// Handler обрабатывает запросы на получение каталога тарифов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить каталог тарифов
// @Description Возвращает список тарифов с диапазонами депозита и ценами.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Каталог тарифов"
// @Router /subscriptions/tiers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"tiers": h.service.Tiers(),
	}))
}
