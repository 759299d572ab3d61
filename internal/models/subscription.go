package models

import "time"

// Статусы подписки, сохраняемые в локальном хранилище.
// Эталонным источником статуса остаётся платёжный шлюз, локальная запись
// фиксирует результат последней сверки.
const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusCancelled = "CANCELLED"
)

// Subscription представляет сохранённую запись об оформленной подписке.
// Актуальной считается самая свежая запись пользователя по CreatedAt.
type Subscription struct {
	ID                    int        // Идентификатор записи
	UserUID               string     // Владелец подписки
	GatewaySubscriptionID string     // Идентификатор подписки, выданный шлюзом
	TierIndex             int        // Индекс выбранного тарифа
	Price                 float64    // Цена на момент оформления
	Status                string     // Локальный статус (ACTIVE, CANCELLED и т.п.)
	CreatedAt             time.Time  // Время создания записи
	LastPaymentAt         *time.Time // Время последнего платежа
	NextBillingAt         *time.Time // Дата следующего списания
}
