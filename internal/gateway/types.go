package gateway

import "time"

// tokenResponse — ответ шлюза на запрос OAuth-токена.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// subscriptionDetails — ответ шлюза на запрос подписки.
type subscriptionDetails struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CheckResult — итог проверки статуса подписки на шлюзе.
// Warning никогда не скрывается от пользователя: сюда попадают сообщения
// о незаполненных учётных данных или недоступности шлюза.
type CheckResult struct {
	Success       bool   `json:"success"`
	IsActive      bool   `json:"is_active"`
	GatewayStatus string `json:"gateway_status,omitempty"`
	Message       string `json:"message,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

// ProductData — данные для создания продукта в каталоге шлюза.
// Заданный заранее ID делает создание идемпотентным: шлюз отвечает
// конфликтом на повтор.
type ProductData struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Category    string `json:"category"`
}

// Product — созданный продукт каталога.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreateTime time.Time `json:"create_time"`
}
