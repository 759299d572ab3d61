// Package reconciler сводит локальную запись подписки и эталонный статус
// платёжного шлюза в единый признак «подписка активна».
//
// Политика fail-closed: если статус проверить не удалось, подписка считается
// неактивной и пользователю показывается предупреждение. Неоднозначность
// биллинга никогда не трактуется в пользу доступа.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/tradebot-portal/internal/gateway"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/metrics"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Ошибки сверки и отмены.
var (
	// ErrConfirmationRequired — отмена подписки требует явного подтверждения.
	ErrConfirmationRequired = errors.New("cancellation requires explicit confirmation")
	// ErrNoSubscription — у пользователя нет подписки, пригодной для отмены.
	ErrNoSubscription = errors.New("no subscription on record")
)

// cacheTTL — время жизни закешированного результата сверки.
const cacheTTL = time.Minute

// SubscriptionRepository — операции с локальными записями подписок.
type SubscriptionRepository interface {
	FindCurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, id int, status string) (int, error)
}

// Gateway — проверка и отмена подписки на платёжном шлюзе.
type Gateway interface {
	CheckSubscription(ctx context.Context, subscriptionID string) (*gateway.CheckResult, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason string) (string, error)
}

// Cache хранит недавние результаты сверки.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// EventPublisher публикует биллинговые события.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// StatusResult — итог сверки для одного пользователя.
type StatusResult struct {
	Active        bool   `json:"active"`
	GatewayStatus string `json:"gateway_status,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

// CancelledEvent — событие отмены подписки.
type CancelledEvent struct {
	UserUID               string    `json:"user_uid"`
	GatewaySubscriptionID string    `json:"gateway_subscription_id"`
	Status                string    `json:"status"`
	OccurredAt            time.Time `json:"occurred_at"`
}

// Service реализует сверку подписок.
type Service struct {
	repo   SubscriptionRepository
	gw     Gateway
	cache  Cache
	events EventPublisher
	log    *slog.Logger
}

// NewService создает новый Service.
func NewService(repo SubscriptionRepository, gw Gateway, cache Cache, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		gw:     gw,
		cache:  cache,
		events: events,
		log:    log,
	}
}

func cacheKey(userUID string) string {
	return fmt.Sprintf("substatus:%s", userUID)
}

// Status возвращает признак активности подписки пользователя.
// Берётся самая свежая локальная запись; эталонный ответ даёт шлюз.
func (s *Service) Status(ctx context.Context, userUID string) (*StatusResult, error) {
	const op = "reconciler.Status"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	var cached StatusResult
	if found, err := s.cache.Get(cacheKey(userUID), &cached); err != nil {
		log.Warn("failed to read status cache", sl.Err(err))
	} else if found {
		return &cached, nil
	}

	sub, err := s.repo.FindCurrentSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result StatusResult
	cacheable := true
	switch {
	case sub == nil:
		// Подписки нет — неактивна без предупреждений.
		result = StatusResult{Active: false}
		metrics.ReconcileChecksTotal.WithLabelValues("no_subscription").Inc()
	case sub.GatewaySubscriptionID == "":
		// Запись без идентификатора шлюза — неполная, доверять ей нельзя.
		log.Warn("subscription record has no gateway id", slog.Int("id", sub.ID))
		result = StatusResult{Active: false}
		metrics.ReconcileChecksTotal.WithLabelValues("incomplete_record").Inc()
	default:
		check, err := s.gw.CheckSubscription(ctx, sub.GatewaySubscriptionID)
		if err != nil {
			// Fail-closed: недоступный шлюз не означает активную подписку.
			// Результат не кешируется, чтобы после восстановления шлюза
			// следующий запрос сразу дал настоящий статус.
			log.Error("gateway status check failed", sl.Err(err))
			result = StatusResult{
				Active:  false,
				Warning: "could not verify subscription status, please try again later",
			}
			cacheable = false
			metrics.ReconcileChecksTotal.WithLabelValues("check_failed").Inc()
		} else if !check.Success {
			result = StatusResult{
				Active:        false,
				GatewayStatus: check.GatewayStatus,
				Warning:       check.Message,
			}
			metrics.ReconcileChecksTotal.WithLabelValues("gateway_error").Inc()
		} else {
			result = StatusResult{
				Active:        check.IsActive,
				GatewayStatus: check.GatewayStatus,
				Warning:       check.Warning,
			}
			metrics.ReconcileChecksTotal.WithLabelValues("ok").Inc()
		}
	}

	if !cacheable {
		return &result, nil
	}
	if err := s.cache.Set(cacheKey(userUID), result, cacheTTL); err != nil {
		log.Warn("failed to cache status result", sl.Err(err))
	}
	return &result, nil
}

// Cancel отменяет подписку пользователя. Действие необратимо и выполняется
// только с явным подтверждением. Локальный статус меняется только после
// успешной отмены на шлюзе.
func (s *Service) Cancel(ctx context.Context, userUID string, confirmed bool) (string, error) {
	const op = "reconciler.Cancel"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	if !confirmed {
		return "", ErrConfirmationRequired
	}

	sub, err := s.repo.FindCurrentSubscription(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil || sub.GatewaySubscriptionID == "" {
		return "", ErrNoSubscription
	}

	status, err := s.gw.CancelSubscription(ctx, sub.GatewaySubscriptionID, "cancelled by user")
	if err != nil {
		log.Error("gateway cancellation failed", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.UpdateSubscriptionStatus(ctx, sub.ID, status); err != nil {
		// Шлюз уже отменил подписку; локальный сбой фиксируем, но отмену
		// не откатываем.
		log.Error("failed to update local subscription status", sl.Err(err))
	}
	if err := s.cache.Invalidate(cacheKey(userUID)); err != nil {
		log.Warn("failed to invalidate status cache", sl.Err(err))
	}

	event := CancelledEvent{
		UserUID:               userUID,
		GatewaySubscriptionID: sub.GatewaySubscriptionID,
		Status:                status,
		OccurredAt:            time.Now(),
	}
	if err := s.events.Publish(rabbitmq.RoutingKeyCancelled, event); err != nil {
		log.Error("failed to publish cancelled event", sl.Err(err))
	}

	log.Info("subscription cancelled", slog.String("status", status))
	return status, nil
}
