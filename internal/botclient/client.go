// Package botclient реализует клиент удалённого торгового сервиса пользователя.
//
// Клиент выполняет три фиксированные операции: status (чтение), start и stop
// (мутации). Секрет пользователя живёт только внутри экземпляра клиента и
// не передаётся дальше по слоям.
package botclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// ErrConfigurationMissing возвращается, когда в профиле нет имени сервиса
// или секрета. Сетевой вызов в этом случае не выполняется.
var ErrConfigurationMissing = errors.New("trader service name or secret is not configured")

// defaultPort — порт торговых сервисов; подставляется, если в переопределении
// адреса порт не указан.
const defaultPort = "8443"

// Client выполняет аутентифицированные запросы к торговому сервису одного
// пользователя.
type Client struct {
	baseURL     string
	serviceName string
	secret      string
	httpClient  *http.Client
}

// New создаёт клиент по профилю пользователя. Возвращает
// ErrConfigurationMissing, если профиль не заполнен.
func New(profile models.Profile, defaultHost string) (*Client, error) {
	if !profile.IsConfigured() {
		return nil, ErrConfigurationMissing
	}
	var override string
	if profile.ServerURL != nil {
		override = *profile.ServerURL
	}
	return &Client{
		baseURL:     resolveBaseURL(override, defaultHost),
		serviceName: *profile.TraderServiceName,
		secret:      *profile.TraderSecret,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// resolveBaseURL строит базовый URL торгового сервиса.
// Без переопределения используется https://{defaultHost}:8443. Адрес со схемой
// парсится, схема сохраняется, порт 8443 подставляется, если не задан.
// Адрес без схемы получает https:// и :8443. Конечные слэши отбрасываются.
func resolveBaseURL(override, defaultHost string) string {
	if override == "" {
		return "https://" + defaultHost + ":" + defaultPort
	}
	raw := strings.TrimRight(override, "/")
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "https://" + defaultHost + ":" + defaultPort
		}
		if u.Port() == "" {
			u.Host = u.Hostname() + ":" + defaultPort
		}
		return strings.TrimRight(u.String(), "/")
	}
	return "https://" + raw + ":" + defaultPort
}

// BaseURL возвращает разрешённый базовый адрес сервиса.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, endpoint string) ([]byte, error) {
	const op = "botclient.do"

	target := fmt.Sprintf("%s/services/%s/%s", c.baseURL, c.serviceName, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Не-2xx статусы отдельно не разбираются: тело ответа возвращается
	// вызывающему как есть, панель интерпретирует его по содержимому.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return body, nil
}

// Status запрашивает текущее состояние сервиса. Если тело ответа не является
// JSON, возвращается ServiceStatus с сырым текстом в Raw и пустыми флагами.
func (c *Client) Status(ctx context.Context) (*ServiceStatus, error) {
	body, err := c.do(ctx, http.MethodGet, "status")
	if err != nil {
		return nil, err
	}
	var status ServiceStatus
	if jsonErr := json.Unmarshal(body, &status); jsonErr != nil {
		return &ServiceStatus{Raw: string(body)}, nil
	}
	return &status, nil
}

// Start отправляет команду запуска сервиса.
func (c *Client) Start(ctx context.Context) (*ActionResult, error) {
	return c.action(ctx, "start")
}

// Stop отправляет команду остановки сервиса.
func (c *Client) Stop(ctx context.Context) (*ActionResult, error) {
	return c.action(ctx, "stop")
}

func (c *Client) action(ctx context.Context, endpoint string) (*ActionResult, error) {
	body, err := c.do(ctx, http.MethodPost, endpoint)
	if err != nil {
		return nil, err
	}
	var result ActionResult
	if jsonErr := json.Unmarshal(body, &result); jsonErr != nil {
		return &ActionResult{Raw: string(body)}, nil
	}
	return &result, nil
}
