package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// MockTokenValidator реализует интерфейс TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestJWTMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		authHeader     string
		setupMock      func(*MockTokenValidator)
		expectedStatus int
		expectNext     bool
	}{
		{
			name:       "валидный токен пропускается дальше",
			authHeader: "Bearer good-token",
			setupMock: func(m *MockTokenValidator) {
				m.On("ValidateToken", mock.Anything, "good-token").Return(&models.User{
					UUID:     "uid-1",
					Username: "trader",
					Role:     "user",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "нет заголовка Authorization",
			authHeader:     "",
			setupMock:      func(_ *MockTokenValidator) {},
			expectedStatus: http.StatusUnauthorized,
			expectNext:     false,
		},
		{
			name:           "заголовок без префикса Bearer",
			authHeader:     "Basic dXNlcjpwYXNz",
			setupMock:      func(_ *MockTokenValidator) {},
			expectedStatus: http.StatusUnauthorized,
			expectNext:     false,
		},
		{
			name:       "просроченный токен",
			authHeader: "Bearer stale-token",
			setupMock: func(m *MockTokenValidator) {
				m.On("ValidateToken", mock.Anything, "stale-token").Return(nil, errors.New("token is expired"))
			},
			expectedStatus: http.StatusUnauthorized,
			expectNext:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(MockTokenValidator)
			tt.setupMock(validator)

			nextCalled := false
			var gotUID, gotUsername, gotRole any
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotUID = r.Context().Value(UserUID)
				gotUsername = r.Context().Value(User)
				gotRole = r.Context().Value(Role)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/bot/panel", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			JWTMiddleware(validator, logger)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectNext, nextCalled)
			if tt.expectNext {
				assert.Equal(t, "uid-1", gotUID)
				assert.Equal(t, "trader", gotUsername)
				assert.Equal(t, "user", gotRole)
			}

			validator.AssertExpectations(t)
		})
	}
}
