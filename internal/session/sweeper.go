package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec — расписание очистки по умолчанию.
const DefaultSweepSpec = "@every 1m"

// cronParser принимает стандартные выражения и дескрипторы (@every, @hourly).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSweepSpec проверяет cron-выражение.
func ValidateSweepSpec(spec string) error {
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return nil
}

// Sweeper периодически закрывает неактивные сессии.
type Sweeper struct {
	cron     *cron.Cron
	registry *Registry
	logger   *slog.Logger
}

// StartSweeper запускает очистку по расписанию spec (default: DefaultSweepSpec).
func StartSweeper(registry *Registry, spec string, logger *slog.Logger) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sweeper{
		registry: registry,
		logger:   logger,
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: logger})),
		),
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	s.cron.Start()

	logger.Info("session sweeper started", "schedule", spec, "idle_ttl", registry.cfg.IdleTTL)
	return s, nil
}

// Stop останавливает расписание и ждёт текущую очистку.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	if n := s.registry.Sweep(time.Now()); n > 0 {
		s.logger.Info("expired sessions closed", "count", n, "active", s.registry.Len())
	}
}

// cronLogger — адаптер slog к cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
