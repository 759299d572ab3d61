package profileupdate

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/tradebot-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// MockService реализует интерфейс profileupdate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) UpdateProfile(ctx context.Context, profile models.Profile) (int, error) {
	args := m.Called(ctx, profile)
	return args.Int(0), args.Error(1)
}

func (m *MockService) GetProfile(ctx context.Context, userUID string) (*models.Profile, error) {
	args := m.Called(ctx, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func strPtr(s string) *string { return &s }

func TestUpdateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		userUID        string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "частичное обновление не сбрасывает настроенность",
			userUID: "u1",
			body:    `{"display_name": "Trader One"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(p models.Profile) bool {
					return p.UserUID == "u1" && p.DisplayName != nil &&
						p.TraderServiceName == nil && p.TraderSecret == nil
				})).Return(1, nil)
				m.On("GetProfile", mock.Anything, "u1").Return(&models.Profile{
					UserUID:           "u1",
					DisplayName:       strPtr("Trader One"),
					TraderServiceName: strPtr("mybot"),
					TraderSecret:      strPtr("secret-token"),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"configured":true`,
		},
		{
			name:    "профиль не найден",
			userUID: "u1",
			body:    `{"display_name": "Trader One"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateProfile", mock.Anything, mock.Anything).Return(0, nil)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `profile not found`,
		},
		{
			name:           "некорректный JSON",
			userUID:        "u1",
			body:           `{"display_name": `,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "пустой секрет отклоняется",
			userUID:        "u1",
			body:           `{"trader_secret": ""}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `TraderSecret`,
		},
		{
			name:           "нет uid в контексте",
			userUID:        "",
			body:           `{"display_name": "Trader One"}`,
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

			req := httptest.NewRequest(http.MethodPut, "/account/profile", strings.NewReader(tt.body))
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
