package checkout

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/tradebot-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// MockSubscriptionRepository реализует интерфейс SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	args := m.Called(ctx, sub)
	return args.Int(0), args.Error(1)
}

// MockGateway реализует интерфейс Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Init(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventPublisher реализует интерфейс EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newTestService(repo *MockSubscriptionRepository, gw *MockGateway, events *MockEventPublisher) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewService(repo, gw, events, logger)
}

func TestTiers_CatalogIsComplete(t *testing.T) {
	svc := newTestService(nil, nil, nil)
	tiers := svc.Tiers()
	require.Len(t, tiers, 4)
	assert.Equal(t, "Starter", tiers[0].Name)
	assert.Equal(t, 49.0, tiers[0].Price)
	assert.Equal(t, "Professional", tiers[3].Name)
}

func TestStartSession_InvalidTier(t *testing.T) {
	svc := newTestService(nil, nil, nil)
	_, err := svc.StartSession(context.Background(), "u1", 42)
	assert.Error(t, err)

	_, ok := svc.Session("u1")
	assert.False(t, ok)
}

func TestStartSession_Ready(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Init", mock.Anything).Return(nil)

	svc := newTestService(nil, gw, nil)
	sess, err := svc.StartSession(context.Background(), "u1", 1)
	require.NoError(t, err)

	assert.Equal(t, SessionReady, sess.State)
	assert.Equal(t, 1, sess.TierIndex)
	assert.Equal(t, 1, sess.Attempt)
	assert.NotEmpty(t, sess.ID)
}

func TestStartSession_GatewayFailureMarksFailed(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Init", mock.Anything).Return(errors.New("connection refused")).Once()
	gw.On("Init", mock.Anything).Return(nil).Once()

	svc := newTestService(nil, gw, nil)

	sess, err := svc.StartSession(context.Background(), "u1", 0)
	assert.Error(t, err)
	assert.Equal(t, SessionFailed, sess.State)
	assert.Contains(t, sess.Message, "could not reach")

	// Повтор открывает новую сессию с увеличенным счётчиком
	sess, err = svc.StartSession(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, SessionReady, sess.State)
	assert.Equal(t, 2, sess.Attempt)
}

func TestStartSession_TierChangeSupersedesSession(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Init", mock.Anything).Return(nil)

	svc := newTestService(nil, gw, nil)

	sess, err := svc.StartSession(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Equal(t, 1, sess.Attempt)

	sess, err = svc.StartSession(context.Background(), "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.TierIndex)
	assert.Equal(t, 2, sess.Attempt)
}

func TestApprove_WithoutSession(t *testing.T) {
	svc := newTestService(nil, nil, nil)
	_, err := svc.Approve(context.Background(), "u1", 0, "I-ABC123")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestApprove_StaleTierRejected(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Init", mock.Anything).Return(nil)

	svc := newTestService(nil, gw, nil)
	_, err := svc.StartSession(context.Background(), "u1", 2)
	require.NoError(t, err)

	// Подтверждение по другому тарифу отклоняется
	_, err = svc.Approve(context.Background(), "u1", 0, "I-ABC123")
	assert.ErrorIs(t, err, ErrStaleSession)
}

func TestApprove_PersistsSubscription(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	gw.On("Init", mock.Anything).Return(nil)
	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.UserUID == "u1" &&
			sub.GatewaySubscriptionID == "I-ABC123" &&
			sub.TierIndex == 1 &&
			sub.Price == 99.0 &&
			sub.Status == models.SubscriptionStatusActive &&
			sub.LastPaymentAt != nil
	})).Return(7, nil)

	svc := newTestService(repo, gw, nil)
	_, err := svc.StartSession(context.Background(), "u1", 1)
	require.NoError(t, err)

	id, err := svc.Approve(context.Background(), "u1", 1, "I-ABC123")
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	// Сессия закрыта после успешного подтверждения
	_, ok := svc.Session("u1")
	assert.False(t, ok)
	repo.AssertExpectations(t)
}

func TestApprove_PartialReconciliationPublishesEvent(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	events := new(MockEventPublisher)
	gw.On("Init", mock.Anything).Return(nil)
	repo.On("CreateSubscription", mock.Anything, mock.Anything).Return(0, errors.New("db is down"))
	events.On("Publish", rabbitmq.RoutingKeyReconcileFailed, mock.MatchedBy(func(msg any) bool {
		event, ok := msg.(ReconcileFailedEvent)
		return ok && event.UserUID == "u1" && event.GatewaySubscriptionID == "I-ABC123"
	})).Return(nil)

	svc := newTestService(repo, gw, events)
	_, err := svc.StartSession(context.Background(), "u1", 0)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "u1", 0, "I-ABC123")
	assert.ErrorIs(t, err, ErrPartialReconciliation)
	events.AssertExpectations(t)
}

func TestFailAndAbandon(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Init", mock.Anything).Return(nil)

	svc := newTestService(nil, gw, nil)
	_, err := svc.StartSession(context.Background(), "u1", 0)
	require.NoError(t, err)

	svc.Fail("u1", "the payment provider reported an error")
	sess, ok := svc.Session("u1")
	require.True(t, ok)
	assert.Equal(t, SessionFailed, sess.State)
	assert.Contains(t, sess.Message, "payment provider")

	svc.Abandon("u1")
	sess, ok = svc.Session("u1")
	require.True(t, ok)
	assert.Equal(t, SessionIdle, sess.State)
}
