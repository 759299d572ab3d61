package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/tradebot-portal/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestClient(apiURL string) *Client {
	return NewClient(config.Gateway{
		ClientID:  "client-id",
		SecretKey: "secret-key",
		APIURL:    apiURL,
	}, testLogger())
}

func TestSimulatedMode_WithoutCredentials(t *testing.T) {
	client := NewClient(config.Gateway{APIURL: "https://api.example.com"}, testLogger())

	require.NoError(t, client.Init(context.Background()))

	check, err := client.CheckSubscription(context.Background(), "I-ABC123")
	require.NoError(t, err)
	assert.True(t, check.Success)
	assert.True(t, check.IsActive)
	assert.Equal(t, "ACTIVE", check.GatewayStatus)
	assert.Equal(t, WarningSimulated, check.Warning)

	status, err := client.CancelSubscription(context.Background(), "I-ABC123", "cancelled by user")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", status)
}

func TestEnsureToken_SingleFetchForConcurrentCallers(t *testing.T) {
	var tokenRequests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			atomic.AddInt32(&tokenRequests, 1)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client-id", user)
			assert.Equal(t, "secret-key", pass)
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
		default:
			_, _ = w.Write([]byte(`{"id":"I-ABC123","status":"ACTIVE"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, client.Init(context.Background()))
		}()
	}
	wg.Wait()

	// Конкурентные вызовы ждут одну инициализацию, а не выполняют свою
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenRequests))

	// Токен переиспользуется для последующих запросов
	_, err := client.CheckSubscription(context.Background(), "I-ABC123")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenRequests))
}

func TestCheckSubscription_StatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		gatewayStatus  string
		expectedActive bool
	}{
		{name: "подписка активна", gatewayStatus: "ACTIVE", expectedActive: true},
		{name: "подписка отменена", gatewayStatus: "CANCELLED", expectedActive: false},
		{name: "подписка приостановлена", gatewayStatus: "SUSPENDED", expectedActive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/v1/oauth2/token" {
					_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
					return
				}
				assert.Equal(t, "/v1/billing/subscriptions/I-ABC123", r.URL.Path)
				assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(`{"id":"I-ABC123","status":"` + tt.gatewayStatus + `"}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			check, err := client.CheckSubscription(context.Background(), "I-ABC123")
			require.NoError(t, err)
			assert.True(t, check.Success)
			assert.Equal(t, tt.expectedActive, check.IsActive)
			assert.Equal(t, tt.gatewayStatus, check.GatewayStatus)
		})
	}
}

func TestCheckSubscription_GatewayErrorIsNotSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"name":"RESOURCE_NOT_FOUND"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	check, err := client.CheckSubscription(context.Background(), "I-MISSING")
	require.NoError(t, err)
	assert.False(t, check.Success)
	assert.Contains(t, check.Message, "gateway returned")
}

func TestCancelSubscription_Expects204(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	status, err := client.CancelSubscription(context.Background(), "I-ABC123", "cancelled by user")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", status)
	assert.Equal(t, "/v1/billing/subscriptions/I-ABC123/cancel", gotPath)
}

func TestCancelSubscription_UnexpectedStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CancelSubscription(context.Background(), "I-ABC123", "cancelled by user")
	assert.Error(t, err)
}

func TestInit_TokenEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Init(context.Background())
	assert.Error(t, err)

	// Повторная инициализация пробует заново, а не возвращает кешированную ошибку
	err = client.Init(context.Background())
	assert.Error(t, err)
}

func TestCreateProduct_CreatesCatalogEntry(t *testing.T) {
	var gotBody ProductData
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/catalogs/products", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"PORTAL-TRADEBOT-SUB","name":"Tradebot Portal Subscription"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	product, err := client.CreateProduct(context.Background(), ProductData{
		ID:          "PORTAL-TRADEBOT-SUB",
		Name:        "Tradebot Portal Subscription",
		Description: "Access to the remote trading bot service",
		Type:        "SERVICE",
		Category:    "SOFTWARE",
	})
	require.NoError(t, err)

	assert.Equal(t, "PORTAL-TRADEBOT-SUB", product.ID)
	assert.Equal(t, "PORTAL-TRADEBOT-SUB", gotBody.ID)
	assert.Equal(t, "SERVICE", gotBody.Type)
	assert.Equal(t, "SOFTWARE", gotBody.Category)
}

func TestCreateProduct_DuplicateReturnsErrProductExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateProduct(context.Background(), ProductData{ID: "PORTAL-TRADEBOT-SUB"})
	assert.ErrorIs(t, err, ErrProductExists)
}

func TestCreateProduct_SimulatedMode(t *testing.T) {
	client := NewClient(config.Gateway{APIURL: "https://api.example.com"}, testLogger())

	product, err := client.CreateProduct(context.Background(), ProductData{
		ID:   "PORTAL-TRADEBOT-SUB",
		Name: "Tradebot Portal Subscription",
	})
	require.NoError(t, err)
	assert.Equal(t, "PORTAL-TRADEBOT-SUB", product.ID)
}
