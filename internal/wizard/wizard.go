package wizard

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
	"github.com/shaiso/metamigrate/internal/telemetry"
)

// Config — конфигурация Wizard.
type Config struct {
	// SessionID — идентификатор сессии визарда (для логов и аудита).
	SessionID uuid.UUID

	// Gateway — удалённые операции. Обязателен.
	Gateway remote.Gateway

	// Notifier — получатель уведомлений (default: notify.Discard).
	Notifier notify.Notifier

	// Poller — опрос статусов задач (default: poll.New с Policy).
	Poller *poll.Poller

	// Policy — политика опроса, если Poller не задан.
	Policy poll.Policy

	// Events — получатель записей о деплоях (optional).
	Events EventSink

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// Wizard — трёхшаговый визард миграции.
type Wizard struct {
	sessionID uuid.UUID
	notifier  notify.Notifier
	logger    *slog.Logger

	orgs     *OrgSelector
	catalog  *CatalogBrowser
	deployer *Orchestrator

	// Время жизни визарда. Отменяется в Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	step           domain.Step
	environments   []domain.Environment
	source         string
	target         string
	typeOptions    []string
	selectedTypes  []string
	descriptors    []domain.MetadataDescriptor
	selection      domain.SelectionSet
	lastDeployment *domain.DeploymentRecord
	loading        bool
	closed         bool
}

// New создаёт Wizard на первом шаге.
func New(cfg Config) *Wizard {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := telemetry.WithSessionID(cfg.Logger, cfg.SessionID.String())
	if cfg.Poller == nil {
		cfg.Poller = poll.New(cfg.Policy, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Wizard{
		sessionID: cfg.SessionID,
		notifier:  cfg.Notifier,
		logger:    logger,
		orgs:      NewOrgSelector(cfg.Gateway, cfg.Notifier),
		catalog:   NewCatalogBrowser(cfg.Gateway, cfg.Poller, cfg.Notifier, logger),
		deployer:  NewOrchestrator(cfg.Gateway, cfg.Poller, cfg.Notifier, cfg.Events, logger),
		ctx:       ctx,
		cancel:    cancel,
		step:      domain.StepSelectOrgs,
		selection: domain.SelectionSet{},
	}
}

// State — снимок состояния визарда.
type State struct {
	Step             domain.Step                 `json:"step"`
	StepName         string                      `json:"step_name"`
	Environments     []domain.Environment        `json:"environments"`
	AvailableTargets []domain.Environment        `json:"available_targets"`
	Source           string                      `json:"source,omitempty"`
	Target           string                      `json:"target,omitempty"`
	TypeOptions      []string                    `json:"type_options"`
	SelectedTypes    []string                    `json:"selected_types"`
	Descriptors      []domain.MetadataDescriptor `json:"descriptors"`
	Selection        domain.SelectionSet         `json:"selection"`
	LastDeployment   *domain.DeploymentRecord    `json:"last_deployment,omitempty"`
	CanAdvance       bool                        `json:"can_advance"`
	Loading          bool                        `json:"loading"`
	Closed           bool                        `json:"closed"`
}

// State возвращает копию текущего состояния.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := State{
		Step:             w.step,
		StepName:         w.step.String(),
		Environments:     slices.Clone(w.environments),
		AvailableTargets: w.orgs.AvailableTargets(w.environments, w.source),
		Source:           w.source,
		Target:           w.target,
		TypeOptions:      slices.Clone(w.typeOptions),
		SelectedTypes:    slices.Clone(w.selectedTypes),
		Descriptors:      slices.Clone(w.descriptors),
		Selection:        w.selection.Clone(),
		CanAdvance:       w.canAdvanceLocked(),
		Loading:          w.loading,
		Closed:           w.closed,
	}
	if w.lastDeployment != nil {
		rec := *w.lastDeployment
		rec.Selection = rec.Selection.Clone()
		st.LastDeployment = &rec
	}
	return st
}

// Step возвращает текущий шаг.
func (w *Wizard) Step() domain.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Loading возвращает true, пока выполняется операция.
func (w *Wizard) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// Close отменяет выполняющиеся операции и ждёт их завершения.
// Повторный вызов безопасен.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	w.logger.Debug("wizard closed")
}

// begin поднимает флаг loading.
func (w *Wizard) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return domain.ErrClosed
	}
	if w.loading {
		return domain.ErrBusy
	}
	w.loading = true
	w.wg.Add(1)
	return nil
}

// end опускает флаг loading.
func (w *Wizard) end() {
	w.mu.Lock()
	w.loading = false
	w.mu.Unlock()
	w.wg.Done()
}

// withState выполняет синхронное изменение состояния под w.mu.
func (w *Wizard) withState(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return domain.ErrClosed
	}
	if w.loading {
		return domain.ErrBusy
	}
	return fn()
}

// opContext возвращает ctx, отменяемый также при Close.
func (w *Wizard) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(w.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
