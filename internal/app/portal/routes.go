// Package portal предоставляет маршруты для основного приложения.
package portal

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/account/alerts"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/account/performance"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/account/profile"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/account/profileupdate"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/bot/panel"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/bot/start"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/bot/status"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/bot/stop"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/health"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/subscription/approve"
	subcancel "github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/subscription/cancel"
	subcheckout "github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/subscription/checkout"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/subscription/checkoutcancel"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/subscription/checkoutfail"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/subscription/substatus"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/handlers/subscription/tiers"
	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/tradebot-portal/internal/services/auth"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/botcontrol"
	checkoutservice "github.com/magabrotheeeer/tradebot-portal/internal/services/checkout"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/reconciler"
	"github.com/magabrotheeeer/tradebot-portal/internal/storage/repository"
)

// Services — сервисы, которые обслуживают маршруты портала.
type Services struct {
	Auth       *authservice.Service
	BotControl *botcontrol.Service
	Checkout   *checkoutservice.Service
	Reconciler *reconciler.Service
	Storage    *repository.Storage
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.MetricsMiddleware(),
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки: маркетинговая часть портала
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/subscriptions/tiers", tiers.New(logger, s.Checkout).ServeHTTP)
		r.Get("/performance", performance.New(logger, s.Storage).ServeHTTP)

		// Группа с JWT аутентификацией: личный кабинет
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))

			r.Get("/bot/panel", panel.New(logger, s.BotControl).ServeHTTP)
			r.Post("/bot/status", status.New(logger, s.BotControl).ServeHTTP)
			r.Post("/bot/start", start.New(logger, s.BotControl).ServeHTTP)
			r.Post("/bot/stop", stop.New(logger, s.BotControl).ServeHTTP)

			r.Post("/subscriptions/checkout", subcheckout.New(logger, s.Checkout).ServeHTTP)
			r.Post("/subscriptions/checkout/fail", checkoutfail.New(logger, s.Checkout).ServeHTTP)
			r.Post("/subscriptions/checkout/cancel", checkoutcancel.New(logger, s.Checkout).ServeHTTP)
			r.Post("/subscriptions/approve", approve.New(logger, s.Checkout).ServeHTTP)
			r.Get("/subscriptions/status", substatus.New(logger, s.Reconciler).ServeHTTP)
			r.Post("/subscriptions/cancel", subcancel.New(logger, s.Reconciler).ServeHTTP)

			r.Get("/account/profile", profile.New(logger, s.Storage).ServeHTTP)
			r.Put("/account/profile", profileupdate.New(logger, s.Storage).ServeHTTP)
			r.Get("/account/alerts", alerts.New(logger, s.Storage).ServeHTTP)
		})

		r.Get("/health", health.New(logger, s.Storage).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
