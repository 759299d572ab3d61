// Package botcontrol реализует панель управления удалённым торговым сервисом:
// машину состояний idle / not_configured / stopped / running, блокировки
// одновременных операций и отложенную повторную проверку статуса после
// команд start/stop.
package botcontrol

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/tradebot-portal/internal/botclient"
	"github.com/magabrotheeeer/tradebot-portal/internal/lib/sl"
	"github.com/magabrotheeeer/tradebot-portal/internal/metrics"
	"github.com/magabrotheeeer/tradebot-portal/internal/models"
)

// Ошибки панели управления, по которым обработчики строят ответы.
var (
	// ErrOperationInFlight — другая операция панели ещё выполняется.
	ErrOperationInFlight = errors.New("another bot operation is already in flight")
	// ErrActionNotAllowed — действие запрещено в текущем состоянии.
	ErrActionNotAllowed = errors.New("action is not allowed in the current state")
)

// BotClient описывает операции клиента торгового сервиса.
type BotClient interface {
	Status(ctx context.Context) (*botclient.ServiceStatus, error)
	Start(ctx context.Context) (*botclient.ActionResult, error)
	Stop(ctx context.Context) (*botclient.ActionResult, error)
}

// ProfileRepository отдаёт профиль торгового сервиса пользователя.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userUID string) (*models.Profile, error)
}

// ClientFactory строит клиент по профилю. Возвращает
// botclient.ErrConfigurationMissing для незаполненного профиля.
type ClientFactory func(profile models.Profile) (BotClient, error)

// Service держит панели всех пользователей. Состояние панели живёт только
// в памяти процесса и пересчитывается при каждой проверке статуса.
type Service struct {
	profiles     ProfileRepository
	newClient    ClientFactory
	log          *slog.Logger
	recheckDelay time.Duration

	mu     sync.Mutex
	panels map[string]*panel
}

// panel — состояние панели одного пользователя.
// Флаги checking/starting/stopping независимы, но любая активная операция
// блокирует остальные.
type panel struct {
	mu            sync.Mutex
	state         State
	message       string
	warning       string
	tradingAmount string
	platform      string
	symbols       string
	checking      bool
	starting      bool
	stopping      bool
}

// Snapshot — срез состояния панели для ответа API.
type Snapshot struct {
	State         State  `json:"state"`
	Message       string `json:"message,omitempty"`
	Warning       string `json:"warning,omitempty"`
	TradingAmount string `json:"trading_amount,omitempty"`
	Platform      string `json:"platform,omitempty"`
	Symbols       string `json:"symbols,omitempty"`
	CanStart      bool   `json:"can_start"`
	CanStop       bool   `json:"can_stop"`
	Busy          bool   `json:"busy"`
}

// NewService создает новый Service. recheckDelay — задержка перед
// автоматической проверкой статуса после успешного start/stop.
func NewService(profiles ProfileRepository, newClient ClientFactory, log *slog.Logger, recheckDelay time.Duration) *Service {
	return &Service{
		profiles:     profiles,
		newClient:    newClient,
		log:          log,
		recheckDelay: recheckDelay,
		panels:       make(map[string]*panel),
	}
}

func (s *Service) panelFor(userUID string) *panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panels[userUID]
	if !ok {
		p = &panel{state: StateIdle}
		s.panels[userUID] = p
	}
	return p
}

// Panel возвращает текущий срез панели пользователя без сетевых вызовов.
func (s *Service) Panel(userUID string) Snapshot {
	return s.panelFor(userUID).snapshot()
}

func (p *panel) snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	busy := p.checking || p.starting || p.stopping
	return Snapshot{
		State:         p.state,
		Message:       p.message,
		Warning:       p.warning,
		TradingAmount: p.tradingAmount,
		Platform:      p.platform,
		Symbols:       p.symbols,
		CanStart:      p.state == StateStopped && !busy,
		CanStop:       p.state == StateRunning && !busy,
		Busy:          busy,
	}
}

// begin помечает операцию как выполняющуюся. Возвращает ErrOperationInFlight,
// если любая из трёх операций уже идёт.
func (p *panel) begin(flag *bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checking || p.starting || p.stopping {
		return ErrOperationInFlight
	}
	*flag = true
	return nil
}

func (p *panel) end(flag *bool) {
	p.mu.Lock()
	*flag = false
	p.mu.Unlock()
}

func (s *Service) client(ctx context.Context, userUID string) (BotClient, error) {
	profile, err := s.profiles.GetProfile(ctx, userUID)
	if err != nil {
		return nil, err
	}
	return s.newClient(*profile)
}

// CheckStatus запрашивает статус торгового сервиса и пересчитывает состояние
// панели по паре флагов (active, enabled).
func (s *Service) CheckStatus(ctx context.Context, userUID string) (Snapshot, error) {
	const op = "botcontrol.CheckStatus"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))
	p := s.panelFor(userUID)

	client, err := s.client(ctx, userUID)
	if err != nil {
		if errors.Is(err, botclient.ErrConfigurationMissing) {
			p.setMessage("trader service is not configured yet, complete setup first")
			metrics.BotOperationsTotal.WithLabelValues("status", "not_configured").Inc()
			return p.snapshot(), err
		}
		log.Error("failed to load profile", sl.Err(err))
		return p.snapshot(), err
	}

	if err := p.begin(&p.checking); err != nil {
		return p.snapshot(), err
	}
	defer p.end(&p.checking)

	status, err := client.Status(ctx)
	if err != nil {
		// Состояние не меняется: сбой сети ничего не говорит о сервисе.
		log.Error("failed to reach trader service", sl.Err(err))
		p.setMessage("could not reach the trading service, check your connection and try again")
		metrics.BotOperationsTotal.WithLabelValues("status", "transport_error").Inc()
		return p.snapshot(), nil
	}

	state, recognized := MapState(status.Active, status.Enabled)
	p.mu.Lock()
	p.state = state
	p.warning = ""
	p.tradingAmount = status.Amount
	p.platform = status.Platform
	p.symbols = status.Symbols
	switch {
	case !recognized:
		p.warning = "trading service reported an unexpected state, treating it as stopped"
		p.message = ""
	case state == StateNotConfigured:
		p.message = "trading service is not configured, please contact support"
	case state == StateStopped:
		p.message = "trading service is ready to start"
	case state == StateRunning:
		p.message = "trading service is running"
	}
	p.mu.Unlock()

	log.Info("status check complete", slog.String("state", string(state)))
	metrics.BotOperationsTotal.WithLabelValues("status", "ok").Inc()
	return p.snapshot(), nil
}

// Start отправляет команду запуска. Разрешён только из состояния stopped.
// После подтверждённого запуска статус перепроверяется автоматически через
// recheckDelay; проверка не упорядочивается с ручными — последняя запись
// состояния побеждает.
func (s *Service) Start(ctx context.Context, userUID string) (Snapshot, error) {
	const op = "botcontrol.Start"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))
	p := s.panelFor(userUID)

	snap := p.snapshot()
	if snap.State != StateStopped {
		return snap, ErrActionNotAllowed
	}

	client, err := s.client(ctx, userUID)
	if err != nil {
		return p.snapshot(), err
	}

	if err := p.begin(&p.starting); err != nil {
		return p.snapshot(), err
	}
	defer p.end(&p.starting)

	result, err := client.Start(ctx)
	if err != nil {
		log.Error("start command failed", sl.Err(err))
		p.mu.Lock()
		p.state = StateStopped
		p.message = "failed to start the trading service"
		p.mu.Unlock()
		metrics.BotOperationsTotal.WithLabelValues("start", "error").Inc()
		return p.snapshot(), nil
	}

	if result.Action != botclient.ActionStarted {
		// Состояние не меняем, только предупреждаем: политика едина для
		// start и stop.
		log.Warn("unexpected start response", slog.String("raw", result.Raw), slog.String("action", result.Action))
		p.setWarning("trading service returned an unexpected response to the start command")
		metrics.BotOperationsTotal.WithLabelValues("start", "unexpected").Inc()
		return p.snapshot(), nil
	}

	p.mu.Lock()
	p.state = StateRunning
	p.message = "trading service is starting, status will refresh shortly"
	p.warning = ""
	p.mu.Unlock()

	s.scheduleRecheck(userUID)
	log.Info("start command accepted")
	metrics.BotOperationsTotal.WithLabelValues("start", "ok").Inc()
	return p.snapshot(), nil
}

// Stop отправляет команду остановки. Разрешён только из состояния running.
func (s *Service) Stop(ctx context.Context, userUID string) (Snapshot, error) {
	const op = "botcontrol.Stop"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))
	p := s.panelFor(userUID)

	snap := p.snapshot()
	if snap.State != StateRunning {
		return snap, ErrActionNotAllowed
	}

	client, err := s.client(ctx, userUID)
	if err != nil {
		return p.snapshot(), err
	}

	if err := p.begin(&p.stopping); err != nil {
		return p.snapshot(), err
	}
	defer p.end(&p.stopping)

	result, err := client.Stop(ctx)
	if err != nil {
		// Сбой остановки состояние не меняет: сервис может продолжать работать.
		log.Error("stop command failed", sl.Err(err))
		p.setMessage("failed to stop the trading service, try again")
		metrics.BotOperationsTotal.WithLabelValues("stop", "error").Inc()
		return p.snapshot(), nil
	}

	if result.Service == "" && result.Action == "" && result.Raw == "" {
		log.Warn("empty stop response")
		p.setWarning("trading service returned an unexpected response to the stop command")
		metrics.BotOperationsTotal.WithLabelValues("stop", "unexpected").Inc()
		return p.snapshot(), nil
	}

	p.setMessage("trading service is stopping, status will refresh shortly")
	s.scheduleRecheck(userUID)
	log.Info("stop command accepted")
	metrics.BotOperationsTotal.WithLabelValues("stop", "ok").Inc()
	return p.snapshot(), nil
}

// scheduleRecheck запускает отложенную проверку статуса после start/stop.
// Проверка выполняется в фоне и не отменяется.
func (s *Service) scheduleRecheck(userUID string) {
	time.AfterFunc(s.recheckDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := s.CheckStatus(ctx, userUID); err != nil {
			s.log.Warn("scheduled status recheck failed", slog.String("user_uid", userUID), sl.Err(err))
		}
	})
}

func (p *panel) setMessage(msg string) {
	p.mu.Lock()
	p.message = msg
	p.mu.Unlock()
}

func (p *panel) setWarning(msg string) {
	p.mu.Lock()
	p.warning = msg
	p.mu.Unlock()
}
