package models

import "fmt"

// PricingTier описывает тариф подписки: диапазон торгового баланса [Min, Max),
// месячную цену и идентификаторы плана на стороне платёжного шлюза.
// Поле Quantity — код количества, которым шлюз различает планы одной группы.
type PricingTier struct {
	Name     string  `json:"name"`      // Отображаемое имя тарифа
	MinRange float64 `json:"min_range"` // Нижняя граница баланса (включительно)
	MaxRange float64 `json:"max_range"` // Верхняя граница баланса (исключительно)
	Price    float64 `json:"price"`     // Цена в месяц, USD
	PlanID   string  `json:"plan_id"`   // Идентификатор плана на стороне шлюза
	Quantity string  `json:"quantity"`  // Код количества для различения планов
}

// PricingTiers — статический каталог из четырёх тарифов.
// Каталог неизменяем и компилируется в приложение.
var PricingTiers = []PricingTier{
	{Name: "Starter", MinRange: 0, MaxRange: 25_000, Price: 49, PlanID: "P-5ML4271244454362WXNWU5NQ", Quantity: "10"},
	{Name: "Growth", MinRange: 25_000, MaxRange: 100_000, Price: 99, PlanID: "P-1GJ4878431315632NXNWU5RA", Quantity: "25"},
	{Name: "Advanced", MinRange: 100_000, MaxRange: 250_000, Price: 149, PlanID: "P-8RT3290713067245KXNWU5TY", Quantity: "50"},
	{Name: "Professional", MinRange: 250_000, MaxRange: 10_000_000, Price: 199, PlanID: "P-2WC1101296441254HXNWU5WI", Quantity: "100"},
}

// TierByIndex возвращает тариф по индексу каталога.
func TierByIndex(idx int) (PricingTier, error) {
	if idx < 0 || idx >= len(PricingTiers) {
		return PricingTier{}, fmt.Errorf("unknown pricing tier index: %d", idx)
	}
	return PricingTiers[idx], nil
}
