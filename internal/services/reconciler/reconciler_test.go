package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/tradebot-portal/internal/gateway"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// MockSubscriptionRepository реализует интерфейс SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindCurrentSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubscriptionRepository) UpdateSubscriptionStatus(ctx context.Context, id int, status string) (int, error) {
	args := m.Called(ctx, id, status)
	return args.Int(0), args.Error(1)
}

// MockGateway реализует интерфейс Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CheckSubscription(ctx context.Context, subscriptionID string) (*gateway.CheckResult, error) {
	args := m.Called(ctx, subscriptionID)
	if res := args.Get(0); res != nil {
		return res.(*gateway.CheckResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, subscriptionID, reason string) (string, error) {
	args := m.Called(ctx, subscriptionID, reason)
	return args.String(0), args.Error(1)
}

// MockCache реализует интерфейс Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
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

func newTestService(repo *MockSubscriptionRepository, gw *MockGateway, cache *MockCache, events *MockEventPublisher) *Service {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewService(repo, gw, cache, events, logger)
}

func missCache(cache *MockCache) {
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func activeSubscription() *models.Subscription {
	return &models.Subscription{
		ID:                    1,
		UserUID:               "u1",
		GatewaySubscriptionID: "I-ABC123",
		TierIndex:             1,
		Price:                 99.0,
		Status:                models.SubscriptionStatusActive,
	}
}

func TestStatus_NoSubscription(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	cache := new(MockCache)
	missCache(cache)
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(nil, nil)

	svc := newTestService(repo, nil, cache, nil)
	result, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.False(t, result.Active)
	assert.Empty(t, result.Warning)
}

func TestStatus_RecordWithoutGatewayID(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	cache := new(MockCache)
	missCache(cache)
	sub := activeSubscription()
	sub.GatewaySubscriptionID = ""
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(sub, nil)

	svc := newTestService(repo, nil, cache, nil)
	result, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	// Запись без идентификатора шлюза не даёт доступа
	assert.False(t, result.Active)
}

func TestStatus_GatewayUnreachableFailsClosed(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(activeSubscription(), nil)
	gw.On("CheckSubscription", mock.Anything, "I-ABC123").Return(nil, errors.New("dial timeout"))

	svc := newTestService(repo, gw, cache, nil)
	result, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.False(t, result.Active)
	assert.Contains(t, result.Warning, "could not verify")
	// Неудачная сверка не кешируется: после восстановления шлюза следующий
	// запрос получает настоящий статус, а не минутное предупреждение
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatus_GatewayErrorResponseFailsClosed(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	cache := new(MockCache)
	missCache(cache)
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(activeSubscription(), nil)
	gw.On("CheckSubscription", mock.Anything, "I-ABC123").Return(&gateway.CheckResult{
		Success: false,
		Message: "gateway returned 404 Not Found",
	}, nil)

	svc := newTestService(repo, gw, cache, nil)
	result, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.False(t, result.Active)
	assert.Contains(t, result.Warning, "404")
}

func TestStatus_ActiveOnGateway(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	cache := new(MockCache)
	missCache(cache)
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(activeSubscription(), nil)
	gw.On("CheckSubscription", mock.Anything, "I-ABC123").Return(&gateway.CheckResult{
		Success:       true,
		IsActive:      true,
		GatewayStatus: "ACTIVE",
	}, nil)

	svc := newTestService(repo, gw, cache, nil)
	result, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, result.Active)
	assert.Equal(t, "ACTIVE", result.GatewayStatus)
}

func TestStatus_CancelledOnGatewayWinsOverLocalRecord(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	cache := new(MockCache)
	missCache(cache)
	// Локально запись активна, но шлюз говорит CANCELLED — шлюз эталон
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(activeSubscription(), nil)
	gw.On("CheckSubscription", mock.Anything, "I-ABC123").Return(&gateway.CheckResult{
		Success:       true,
		IsActive:      false,
		GatewayStatus: "CANCELLED",
	}, nil)

	svc := newTestService(repo, gw, cache, nil)
	result, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.False(t, result.Active)
	assert.Equal(t, "CANCELLED", result.GatewayStatus)
}

func TestStatus_CacheHitSkipsGateway(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	cache := new(MockCache)
	cache.On("Get", "substatus:u1", mock.Anything).Run(func(args mock.Arguments) {
		result := args.Get(1).(*StatusResult)
		result.Active = true
		result.GatewayStatus = "ACTIVE"
	}).Return(true, nil)

	svc := newTestService(repo, gw, cache, nil)
	result, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, result.Active)
	repo.AssertNotCalled(t, "FindCurrentSubscription")
	gw.AssertNotCalled(t, "CheckSubscription")
}

func TestCancel_RequiresConfirmation(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	_, err := svc.Cancel(context.Background(), "u1", false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
}

func TestCancel_NoSubscription(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(nil, nil)

	svc := newTestService(repo, nil, nil, nil)
	_, err := svc.Cancel(context.Background(), "u1", true)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestCancel_GatewayFailureLeavesLocalRecord(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(activeSubscription(), nil)
	gw.On("CancelSubscription", mock.Anything, "I-ABC123", "cancelled by user").
		Return("", errors.New("dial timeout"))

	svc := newTestService(repo, gw, nil, nil)
	_, err := svc.Cancel(context.Background(), "u1", true)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "UpdateSubscriptionStatus")
}

func TestCancel_SuccessUpdatesAndPublishes(t *testing.T) {
	repo := new(MockSubscriptionRepository)
	gw := new(MockGateway)
	cache := new(MockCache)
	events := new(MockEventPublisher)
	repo.On("FindCurrentSubscription", mock.Anything, "u1").Return(activeSubscription(), nil)
	gw.On("CancelSubscription", mock.Anything, "I-ABC123", "cancelled by user").Return("CANCELLED", nil)
	repo.On("UpdateSubscriptionStatus", mock.Anything, 1, "CANCELLED").Return(1, nil)
	cache.On("Invalidate", "substatus:u1").Return(nil)
	events.On("Publish", rabbitmq.RoutingKeyCancelled, mock.MatchedBy(func(msg any) bool {
		event, ok := msg.(CancelledEvent)
		return ok && event.UserUID == "u1" && event.Status == "CANCELLED"
	})).Return(nil)

	svc := newTestService(repo, gw, cache, events)
	status, err := svc.Cancel(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", status)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
	events.AssertExpectations(t)
}
