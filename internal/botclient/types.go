package botclient

// Значения флагов статуса, которые возвращает торговый сервис.
const (
	FlagActive   = "active"
	FlagInactive = "inactive"
	FlagEnabled  = "enabled"
	FlagDisabled = "disabled"
)

// ServiceStatus — ответ торгового сервиса на запрос статуса.
// Поле Raw заполняется, когда тело ответа не распарсилось как JSON:
// в нём возвращается сырой текст, а флаги остаются пустыми.
type ServiceStatus struct {
	Active   string `json:"active"`   // "active" | "inactive"
	Enabled  string `json:"enabled"`  // "enabled" | "disabled"
	Service  string `json:"service"`  // Имя сервиса
	Platform string `json:"platform"` // Брокерская платформа
	Symbols  string `json:"symbols"`  // Торгуемые инструменты
	Amount   string `json:"amount"`   // Торговый объём
	Raw      string `json:"-"`
}

// ActionResult — ответ торгового сервиса на start/stop.
// При успешном запуске Action равен "started". Поле Raw заполняется
// сырым текстом, если тело не распарсилось как JSON.
type ActionResult struct {
	Service string `json:"service"`
	Action  string `json:"action"`
	Raw     string `json:"-"`
}

// ActionStarted — значение Action при успешном запуске сервиса.
const ActionStarted = "started"
