package models

import "time"

// AlertRecord — запись истории торговых сигналов. Только для чтения:
// строки создаются торговым сервисом, портал их лишь отображает.
type AlertRecord struct {
	ID        int       `json:"id"`
	Symbol    string    `json:"symbol"`   // Тикер инструмента
	Action    string    `json:"action"`   // buy или sell
	Quantity  float64   `json:"quantity"` // Размер позиции
	Price     float64   `json:"price"`    // Цена исполнения
	CreatedAt time.Time `json:"created_at"`
}

// PerformanceRecord — годовой результат стратегии для страницы доходности.
type PerformanceRecord struct {
	ID         int     `json:"id"`
	Year       int     `json:"year"`
	ProfitLoss float64 `json:"profit_loss"` // Итог года в USD
	ReturnPct  float64 `json:"return_pct"`  // Доходность года в процентах
}
