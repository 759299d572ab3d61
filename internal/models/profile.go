// Package models содержит доменные структуры портала: профиль пользователя,
// подписки, тарифы и исторические записи торговых операций.
package models

// Profile хранит конфигурацию удалённого торгового сервиса пользователя.
// Все поля, кроме UserUID, опциональны: запись создаётся пустой при регистрации
// и заполняется пользователем в личном кабинете.
type Profile struct {
	UserUID           string  // Уникальный идентификатор пользователя
	DisplayName       *string // Отображаемое имя (опционально)
	TraderServiceName *string // Имя удалённого торгового сервиса пользователя
	TraderSecret      *string // Bearer-токен для доступа к торговому сервису (секрет)
	ServerURL         *string // Переопределение базового URL сервера (опционально)
}

// IsConfigured сообщает, достаточно ли данных профиля для обращения
// к торговому сервису: нужны имя сервиса и секрет.
func (p Profile) IsConfigured() bool {
	return p.TraderServiceName != nil && *p.TraderServiceName != "" &&
		p.TraderSecret != nil && *p.TraderSecret != ""
}
