package approve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/services/checkout"
)

// MockService реализует интерфейс approve.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Approve(ctx context.Context, userUID string, tierIndex int, gatewaySubID string) (int, error) {
	args := m.Called(ctx, userUID, tierIndex, gatewaySubID)
	return args.Int(0), args.Error(1)
}

func TestApproveHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное подтверждение оплаты",
			body:    `{"tier_index":1,"gateway_subscription_id":"I-ABC123"}`,
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Approve", mock.Anything, "u1", 1, "I-ABC123").Return(7, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"subscription_id":7`,
		},
		{
			name:           "нет открытой сессии",
			body:           `{"tier_index":1,"gateway_subscription_id":"I-ABC123"}`,
			userUID:        "u1",
			setupMock:      func(m *MockService) { m.On("Approve", mock.Anything, "u1", 1, "I-ABC123").Return(0, checkout.ErrNoSession) },
			expectedStatus: http.StatusConflict,
			expectedBody:   `no checkout session`,
		},
		{
			name:           "тариф не совпадает с сессией",
			body:           `{"tier_index":0,"gateway_subscription_id":"I-ABC123"}`,
			userUID:        "u1",
			setupMock:      func(m *MockService) { m.On("Approve", mock.Anything, "u1", 0, "I-ABC123").Return(0, checkout.ErrStaleSession) },
			expectedStatus: http.StatusConflict,
			expectedBody:   `restart checkout`,
		},
		{
			name:    "частичный сбой сверки",
			body:    `{"tier_index":1,"gateway_subscription_id":"I-ABC123"}`,
			userUID: "u1",
			setupMock: func(m *MockService) {
				m.On("Approve", mock.Anything, "u1", 1, "I-ABC123").
					Return(0, fmt.Errorf("%w: db is down", checkout.ErrPartialReconciliation))
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `support has been notified`,
		},
		{
			name:           "некорректный JSON",
			body:           `{not json`,
			userUID:        "u1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "нет идентификатора шлюза",
			body:           `{"tier_index":1}`,
			userUID:        "u1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `GatewaySubscriptionID`,
		},
		{
			name:           "нет uid в контексте",
			body:           `{"tier_index":1,"gateway_subscription_id":"I-ABC123"}`,
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscriptions/approve", strings.NewReader(tt.body))
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
