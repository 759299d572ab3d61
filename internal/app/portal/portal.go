// Package portal собирает все зависимости приложения: базу данных, кеш,
// брокер событий, платёжный шлюз и HTTP-сервер портала.
package portal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/tradebot-portal/internal/botclient"
	"github.com/magabrotheeeer/tradebot-portal/internal/cache"
	"github.com/magabrotheeeer/tradebot-portal/internal/config"
	"github.com/magabrotheeeer/tradebot-portal/internal/gateway"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/migrations"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/auth"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/botcontrol"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/checkout"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/reconciler"
	"github.com/magabrotheeeer/tradebot-portal/internal/storage/repository"
)

// recheckDelay — пауза перед автоматической перепроверкой статуса бота
// после команд start/stop.
const recheckDelay = 2 * time.Second

// catalogProduct — запись каталога шлюза, на которую оформляются все тарифы.
// Фиксированный ID делает создание при старте идемпотентным.
var catalogProduct = gateway.ProductData{
	ID:          "PORTAL-TRADEBOT-SUB",
	Name:        "Tradebot Portal Subscription",
	Description: "Access to the remote trading bot service",
	Type:        "SERVICE",
	Category:    "SOFTWARE",
}

// App инкапсулирует HTTP-сервер портала и его зависимости.
type App struct {
	server     *http.Server
	logger     *slog.Logger
	db         *repository.Storage
	cache      *cache.Cache
	rabbitConn *amqp.Connection
}

// New создает App: подключает базу, применяет миграции, поднимает кеш,
// брокер и платёжный шлюз, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	rabbitConn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.ConnectDelay)
	if err != nil {
		return nil, err
	}
	rabbitCh, err := rabbitmq.SetupChannel(rabbitConn, rabbitmq.DefaultQueues)
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(rabbitCh)

	gatewayClient := gateway.NewClient(cfg.Gateway, logger)
	if product, err := gatewayClient.CreateProduct(ctx, catalogProduct); err != nil {
		if errors.Is(err, gateway.ErrProductExists) {
			logger.Debug("gateway catalog product already exists", slog.String("product_id", catalogProduct.ID))
		} else {
			// Портал работоспособен и без записи каталога, падать из-за неё нельзя.
			logger.Warn("failed to ensure gateway catalog product", sl.Err(err))
		}
	} else {
		logger.Info("gateway catalog product ready", slog.String("product_id", product.ID))
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	authService := auth.NewService(db, jwtMaker)
	botService := botcontrol.NewService(db, func(profile models.Profile) (botcontrol.BotClient, error) {
		return botclient.New(profile, cfg.Trader.DefaultHost)
	}, logger, recheckDelay)
	checkoutService := checkout.NewService(db, gatewayClient, publisher, logger)
	reconcilerService := reconciler.NewService(db, gatewayClient, cacheRedis, publisher, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Auth:       authService,
		BotControl: botService,
		Checkout:   checkoutService,
		Reconciler: reconcilerService,
		Storage:    db,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:     srv,
		logger:     logger,
		db:         db,
		cache:      cacheRedis,
		rabbitConn: rabbitConn,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста или ошибки
// сервера. При завершении соединения закрываются корректно.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.db.DB.Close()
		_ = a.cache.Db.Close()
		_ = a.rabbitConn.Close()
		return err
	}
}
