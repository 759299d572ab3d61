// Package checkout управляет оформлением подписки через платёжный шлюз:
// выбор тарифа, подготовка сессии оформления и сохранение результата после
// подтверждения оплаты.
//
// Сессия привязана к одному тарифу. Смена тарифа отбрасывает прежнюю сессию
// и создаёт новую с увеличенным счётчиком попыток, поэтому подтверждение
// по устаревшему тарифу не принимается.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/tradebot-portal/internal/gateway"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/metrics"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Ошибки оформления подписки.
var (
	// ErrPartialReconciliation — оплата прошла на шлюзе, но локальная запись
	// не сохранилась. Требует ручного разбора и всегда показывается
	// пользователю.
	ErrPartialReconciliation = errors.New("payment succeeded at the gateway but the local record was not saved")
	// ErrNoSession — подтверждение пришло без открытой сессии оформления.
	ErrNoSession = errors.New("no checkout session is open")
	// ErrStaleSession — подтверждение не совпадает с тарифом открытой сессии.
	ErrStaleSession = errors.New("checkout session does not match the approved tier")
)

// SessionState — состояние сессии оформления.
type SessionState string

const (
	// SessionIdle — сессия закрыта без результата (пользователь передумал).
	SessionIdle SessionState = "idle"
	// SessionLoading — идёт инициализация шлюза.
	SessionLoading SessionState = "loading"
	// SessionReady — шлюз готов, ждём подтверждения оплаты.
	SessionReady SessionState = "ready"
	// SessionFailed — инициализация или оформление сорвались; доступен повтор.
	SessionFailed SessionState = "failed"
)

// Session — сессия оформления подписки одного пользователя.
type Session struct {
	ID        string       `json:"id"` // Корреляционный идентификатор сессии
	TierIndex int          `json:"tier_index"`
	Attempt   int          `json:"attempt"` // Счётчик попыток; растёт при повторах и смене тарифа
	State     SessionState `json:"state"`
	Message   string       `json:"message,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// SubscriptionRepository сохраняет записи подписок.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
}

// Gateway прогревает подключение к платёжному шлюзу.
type Gateway interface {
	Init(ctx context.Context) error
}

// EventPublisher публикует биллинговые события.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// ReconcileFailedEvent — событие частичного сбоя сверки, уходит в очередь
// ручного разбора.
type ReconcileFailedEvent struct {
	UserUID               string    `json:"user_uid"`
	GatewaySubscriptionID string    `json:"gateway_subscription_id"`
	TierIndex             int       `json:"tier_index"`
	Price                 float64   `json:"price"`
	Reason                string    `json:"reason"`
	OccurredAt            time.Time `json:"occurred_at"`
}

// Service реализует оформление подписок.
type Service struct {
	repo   SubscriptionRepository
	gw     Gateway
	events EventPublisher
	log    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService создает новый Service.
func NewService(repo SubscriptionRepository, gw Gateway, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		gw:       gw,
		events:   events,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Tiers возвращает каталог тарифов.
func (s *Service) Tiers() []models.PricingTier {
	return models.PricingTiers
}

// Session возвращает копию текущей сессии пользователя.
func (s *Service) Session(userUID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userUID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// StartSession открывает сессию оформления для выбранного тарифа.
// Прежняя сессия пользователя отбрасывается независимо от её состояния.
func (s *Service) StartSession(ctx context.Context, userUID string, tierIndex int) (Session, error) {
	const op = "checkout.StartSession"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	if _, err := models.TierByIndex(tierIndex); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	attempt := 1
	if prior, ok := s.sessions[userUID]; ok {
		attempt = prior.Attempt + 1
		if prior.TierIndex != tierIndex {
			log.Info("tier changed, discarding pending checkout session",
				slog.Int("old_tier", prior.TierIndex), slog.Int("new_tier", tierIndex))
		}
	}
	sess := &Session{
		ID:        uuid.New().String(),
		TierIndex: tierIndex,
		Attempt:   attempt,
		State:     SessionLoading,
		CreatedAt: time.Now(),
	}
	s.sessions[userUID] = sess
	s.mu.Unlock()

	log = log.With(slog.String("session_id", sess.ID))

	if err := s.gw.Init(ctx); err != nil {
		log.Error("gateway initialization failed", sl.Err(err))
		s.mu.Lock()
		if current := s.sessions[userUID]; current == sess {
			sess.State = SessionFailed
			if errors.Is(err, gateway.ErrInitTimeout) {
				sess.Message = "the payment provider is taking too long to respond, please retry"
			} else {
				sess.Message = "could not reach the payment provider, please retry"
			}
		}
		s.mu.Unlock()
		metrics.CheckoutSessionsTotal.WithLabelValues("init_failed").Inc()
		return s.sessionCopy(userUID), err
	}

	s.mu.Lock()
	// Пока шёл прогрев, пользователь мог сменить тариф: тогда эта сессия
	// уже вытеснена и трогать её нельзя.
	if current := s.sessions[userUID]; current == sess {
		sess.State = SessionReady
		sess.Message = ""
	}
	s.mu.Unlock()

	log.Info("checkout session ready", slog.Int("tier", tierIndex), slog.Int("attempt", attempt))
	metrics.CheckoutSessionsTotal.WithLabelValues("ready").Inc()
	return s.sessionCopy(userUID), nil
}

func (s *Service) sessionCopy(userUID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userUID]; ok {
		return *sess
	}
	return Session{}
}

// Approve фиксирует подтверждённую шлюзом оплату: создаёт локальную запись
// подписки по тарифу открытой сессии. Сбой записи после успешной оплаты —
// частичный сбой сверки: он публикуется в очередь ручного разбора и
// возвращается как ErrPartialReconciliation.
func (s *Service) Approve(ctx context.Context, userUID string, tierIndex int, gatewaySubID string) (int, error) {
	const op = "checkout.Approve"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	s.mu.Lock()
	sess, ok := s.sessions[userUID]
	if !ok {
		s.mu.Unlock()
		return 0, ErrNoSession
	}
	if sess.TierIndex != tierIndex || sess.State != SessionReady {
		s.mu.Unlock()
		return 0, ErrStaleSession
	}
	s.mu.Unlock()

	tier, err := models.TierByIndex(tierIndex)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	sub := models.Subscription{
		UserUID:               userUID,
		GatewaySubscriptionID: gatewaySubID,
		TierIndex:             tierIndex,
		Price:                 tier.Price,
		Status:                models.SubscriptionStatusActive,
		LastPaymentAt:         &now,
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		log.Error("failed to persist approved subscription", sl.Err(err),
			slog.String("gateway_subscription_id", gatewaySubID))
		event := ReconcileFailedEvent{
			UserUID:               userUID,
			GatewaySubscriptionID: gatewaySubID,
			TierIndex:             tierIndex,
			Price:                 tier.Price,
			Reason:                err.Error(),
			OccurredAt:            now,
		}
		if pubErr := s.events.Publish(rabbitmq.RoutingKeyReconcileFailed, event); pubErr != nil {
			log.Error("failed to publish reconcile-failed event", sl.Err(pubErr))
		}
		metrics.CheckoutSessionsTotal.WithLabelValues("partial_failure").Inc()
		return 0, fmt.Errorf("%w: %v", ErrPartialReconciliation, err)
	}

	s.mu.Lock()
	delete(s.sessions, userUID)
	s.mu.Unlock()

	log.Info("subscription persisted", slog.Int("id", id), slog.Int("tier", tierIndex))
	metrics.CheckoutSessionsTotal.WithLabelValues("approved").Inc()
	return id, nil
}

// Fail переводит сессию в failed по ошибке со стороны шлюза.
// Повтор выполняется новым StartSession и проходит весь путь инициализации
// заново.
func (s *Service) Fail(userUID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userUID]; ok {
		sess.State = SessionFailed
		sess.Message = reason
	}
	metrics.CheckoutSessionsTotal.WithLabelValues("failed").Inc()
}

// Abandon закрывает сессию без ошибки: пользователь отменил оформление.
func (s *Service) Abandon(userUID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userUID]; ok {
		sess.State = SessionIdle
		sess.Message = "checkout was cancelled"
	}
}
