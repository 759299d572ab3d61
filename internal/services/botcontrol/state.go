package botcontrol

import "github.com/magabrotheeeer/tradebot-portal/internal/botclient"

// State — локальное состояние жизненного цикла торгового сервиса.
type State string

const (
	// StateIdle — начальное состояние до первой проверки статуса.
	StateIdle State = "idle"
	// StateNotConfigured — сервис на удалённой стороне не настроен.
	StateNotConfigured State = "not_configured"
	// StateStopped — сервис настроен и готов к запуску.
	StateStopped State = "stopped"
	// StateRunning — сервис работает.
	StateRunning State = "running"
)

// MapState переводит пару флагов удалённого статуса в локальное состояние.
// Возвращает recognized=false для любой нераспознанной комбинации: состоянием
// тогда становится StateStopped — безопасный вариант, из которого пользователь
// может повторить попытку, а панель показывает предупреждение.
func MapState(active, enabled string) (state State, recognized bool) {
	switch {
	case active == botclient.FlagInactive && enabled == botclient.FlagDisabled:
		return StateNotConfigured, true
	case active == botclient.FlagInactive && enabled == botclient.FlagEnabled:
		return StateStopped, true
	case active == botclient.FlagActive && enabled == botclient.FlagEnabled:
		return StateRunning, true
	default:
		// Именованная ветка отката: неизвестная комбинация флагов.
		return StateStopped, false
	}
}
