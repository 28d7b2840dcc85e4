package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/telemetry"
)

// Default configuration values.
const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 120
	DefaultTimeout     = 15 * time.Minute
)

// ErrAlreadyPolling — этот jobID уже опрашивается.
var ErrAlreadyPolling = errors.New("job is already being polled")

// StatusFunc — удалённый вызов getStatus(jobID).
type StatusFunc func(ctx context.Context, jobID string) (domain.JobStatus, error)

// Policy — политика опроса.
type Policy struct {
	// Interval — пауза между попытками (default: 5s).
	Interval time.Duration

	// MaxAttempts — максимум вызовов статуса (default: 120).
	MaxAttempts int

	// Timeout — общее время ожидания (default: 15m).
	Timeout time.Duration
}

// withDefaults заполняет нулевые поля значениями по умолчанию.
func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return p
}

// Result — итог опроса.
type Result struct {
	// Status — последнее наблюдение статуса.
	Status domain.JobStatus

	// Attempts — сколько раз был вызван StatusFunc.
	Attempts int
}

// Succeeded возвращает true, если задача завершилась успешно.
func (r Result) Succeeded() bool {
	return r.Status.Done && r.Status.Success
}

// Poller опрашивает задачи согласно Policy.
type Poller struct {
	policy Policy
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// New создаёт Poller. Нулевые поля policy получают значения по умолчанию.
func New(policy Policy, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		policy: policy.withDefaults(),
		logger: logger,
		active: make(map[string]struct{}),
	}
}

// Policy возвращает действующую политику.
func (p *Poller) Policy() Policy {
	return p.policy
}

// Wait опрашивает jobID до done=true.
//
// Возвращает:
//   - Result с последним статусом, если задача завершилась (успешно или нет)
//   - ошибку fetch как есть, если удалённый вызов упал
//   - domain.ErrDeploymentTimeout при исчерпании MaxAttempts или Timeout
//   - ctx.Err(), если вызывающий отменил context
func (p *Poller) Wait(ctx context.Context, jobID string, fetch StatusFunc) (Result, error) {
	if !p.acquire(jobID) {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyPolling, jobID)
	}
	defer p.release(jobID)

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, p.policy.Timeout)
	defer cancel()

	logger := telemetry.WithJobID(p.logger, jobID)

	var result Result
	for {
		status, err := fetch(ctx, jobID)
		result.Attempts++

		if err != nil {
			if parent.Err() == nil && ctx.Err() != nil {
				telemetry.RecordPoll(telemetry.PollOutcomeTimeout)
				return result, p.timeoutError(jobID, result.Attempts)
			}
			telemetry.RecordPoll(telemetry.PollOutcomeError)
			return result, err
		}
		result.Status = status

		if status.Done {
			telemetry.RecordPoll(telemetry.PollOutcomeDone)
			logger.Debug("job finished",
				"attempts", result.Attempts,
				"success", status.Success,
				"status", status.Status,
			)
			return result, nil
		}
		telemetry.RecordPoll(telemetry.PollOutcomePending)

		if result.Attempts >= p.policy.MaxAttempts {
			telemetry.RecordPoll(telemetry.PollOutcomeTimeout)
			return result, p.timeoutError(jobID, result.Attempts)
		}

		logger.Debug("job not finished, waiting",
			"attempt", result.Attempts,
			"status", status.Status,
			"delay", p.policy.Interval,
		)

		if err := sleep(ctx, p.policy.Interval); err != nil {
			if parent.Err() != nil {
				return result, parent.Err()
			}
			telemetry.RecordPoll(telemetry.PollOutcomeTimeout)
			return result, p.timeoutError(jobID, result.Attempts)
		}
	}
}

func (p *Poller) timeoutError(jobID string, attempts int) error {
	return fmt.Errorf("%w: job %s not finished after %d attempts (timeout %s)",
		domain.ErrDeploymentTimeout, jobID, attempts, p.policy.Timeout)
}

func (p *Poller) acquire(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.active[jobID]; exists {
		return false
	}
	p.active[jobID] = struct{}{}
	return true
}

func (p *Poller) release(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, jobID)
}

// sleep ждёт d или отмену ctx. Таймер останавливается в обоих случаях.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
