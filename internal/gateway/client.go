// Package gateway реализует клиент платёжного шлюза подписок.
//
// Ресурс шлюза (OAuth-токен) — единый на процесс: первый вызов выполняет
// инициализацию, конкурентные вызовы ждут её завершения ограниченным опросом.
// Сторожевой таймер прерывает затянувшуюся инициализацию. Без учётных данных
// клиент работает в симулированном режиме и помечает каждый ответ
// предупреждением.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/magabrotheeeer/tradebot-portal/internal/config"
)

// Ошибки клиента шлюза.
var (
	// ErrInitTimeout — инициализация шлюза не завершилась вовремя.
	ErrInitTimeout = errors.New("gateway initialization is taking too long")
	// ErrProductExists — продукт с таким идентификатором уже есть в каталоге.
	ErrProductExists = errors.New("product already exists in the gateway catalog")
)

// WarningSimulated добавляется к ответам в симулированном режиме.
const WarningSimulated = "gateway credentials are not configured, returning simulated status"

// Client выполняет запросы к REST API шлюза.
type Client struct {
	clientID   string
	secretKey  string
	apiURL     string
	httpClient *http.Client
	log        *slog.Logger

	initWatchdog time.Duration // предел времени самой инициализации
	readyWait    time.Duration // сколько ждать чужую инициализацию
	pollInterval time.Duration // шаг опроса готовности

	mu           sync.Mutex
	token        string
	tokenExpiry  time.Time
	initializing bool
	initErr      error
}

// NewClient создаёт клиент шлюза по конфигу.
func NewClient(cfg config.Gateway, log *slog.Logger) *Client {
	return &Client{
		clientID:     cfg.ClientID,
		secretKey:    cfg.SecretKey,
		apiURL:       strings.TrimRight(cfg.APIURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		log:          log,
		initWatchdog: 15 * time.Second,
		readyWait:    10 * time.Second,
		pollInterval: 100 * time.Millisecond,
	}
}

func (c *Client) configured() bool {
	return c.clientID != "" && c.secretKey != ""
}

// Init прогревает подключение к шлюзу: получает OAuth-токен, если его ещё нет.
// В симулированном режиме всегда успешен.
func (c *Client) Init(ctx context.Context) error {
	if !c.configured() {
		return nil
	}
	_, err := c.ensureToken(ctx)
	return err
}

// ensureToken возвращает действующий токен. Обновление выполняет только один
// вызывающий, остальные ждут результата.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	if c.initializing {
		c.mu.Unlock()
		return c.waitReady(ctx)
	}
	c.initializing = true
	c.mu.Unlock()

	token, expiry, err := c.fetchToken(ctx)

	c.mu.Lock()
	c.initializing = false
	if err != nil {
		c.initErr = err
		c.mu.Unlock()
		return "", err
	}
	c.token = token
	c.tokenExpiry = expiry
	c.initErr = nil
	c.mu.Unlock()
	return token, nil
}

// waitReady опрашивает готовность чужой инициализации с шагом pollInterval
// и сдаётся по истечении readyWait.
func (c *Client) waitReady(ctx context.Context) (string, error) {
	deadline := time.NewTimer(c.readyWait)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", ErrInitTimeout
		case <-ticker.C:
			c.mu.Lock()
			if c.token != "" && time.Now().Before(c.tokenExpiry) {
				token := c.token
				c.mu.Unlock()
				return token, nil
			}
			if !c.initializing && c.initErr != nil {
				err := c.initErr
				c.mu.Unlock()
				return "", err
			}
			c.mu.Unlock()
		}
	}
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Time, error) {
	const op = "gateway.fetchToken"

	wctx, cancel := context.WithTimeout(ctx, c.initWatchdog)
	defer cancel()

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(wctx, http.MethodPost,
		c.apiURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	req.SetBasicAuth(c.clientID, c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(wctx.Err(), context.DeadlineExceeded) {
			return "", time.Time{}, ErrInitTimeout
		}
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	// Токен считается протухшим чуть раньше фактического срока.
	expiry := time.Now().Add(time.Duration(tr.ExpiresIn-60) * time.Second)
	return tr.AccessToken, expiry, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CheckSubscription спрашивает шлюз о статусе подписки. Ответ шлюза —
// эталонный; предупреждения передаются вызывающему дословно.
func (c *Client) CheckSubscription(ctx context.Context, subscriptionID string) (*CheckResult, error) {
	const op = "gateway.CheckSubscription"

	if !c.configured() {
		c.log.Warn("gateway credentials missing, returning simulated subscription status")
		return &CheckResult{
			Success:       true,
			IsActive:      true,
			GatewayStatus: "ACTIVE",
			Warning:       WarningSimulated,
		}, nil
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/v1/billing/subscriptions/"+subscriptionID, token, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &CheckResult{
			Success: false,
			Message: fmt.Sprintf("gateway returned %s: %s", resp.Status, strings.TrimSpace(string(body))),
		}, nil
	}

	var details subscriptionDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CheckResult{
		Success:       true,
		IsActive:      details.Status == "ACTIVE",
		GatewayStatus: details.Status,
	}, nil
}

// CancelSubscription отменяет подписку на шлюзе и возвращает статус,
// который следует записать локально.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, reason string) (string, error) {
	const op = "gateway.CancelSubscription"

	if !c.configured() {
		c.log.Warn("gateway credentials missing, simulating subscription cancellation")
		return "CANCELLED", nil
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost,
		"/v1/billing/subscriptions/"+subscriptionID+"/cancel", token,
		map[string]string{"reason": reason})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return "", fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	return "CANCELLED", nil
}

// CreateProduct создаёт продукт в каталоге шлюза. Повторное создание продукта
// с тем же идентификатором возвращает ErrProductExists.
func (c *Client) CreateProduct(ctx context.Context, data ProductData) (*Product, error) {
	const op = "gateway.CreateProduct"

	if !c.configured() {
		c.log.Warn("gateway credentials missing, simulating catalog product creation")
		return &Product{ID: data.ID, Name: data.Name}, nil
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/catalogs/products", token, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusConflict {
		return nil, fmt.Errorf("%s: %w", op, ErrProductExists)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &product, nil
}
