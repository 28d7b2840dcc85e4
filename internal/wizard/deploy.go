package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
	"github.com/shaiso/metamigrate/internal/telemetry"
)

// EventSink получает записи о завершённых деплоях.
// Реализуется mq.Publisher.
type EventSink interface {
	PublishDeploymentCompleted(ctx context.Context, record domain.DeploymentRecord) error
}

// DeployRequest — входные данные деплоя.
type DeployRequest struct {
	SessionID uuid.UUID
	Source    string
	Target    string
	Selection domain.SelectionSet
}

// Orchestrator выполняет деплой: авторизация в target, submit,
// опрос статуса до финала, уведомление и событие аудита.
type Orchestrator struct {
	gateway  remote.Gateway
	auth     *authenticator
	poller   *poll.Poller
	notifier notify.Notifier
	events   EventSink
	logger   *slog.Logger
}

// NewOrchestrator создаёт Orchestrator. events может быть nil.
func NewOrchestrator(gateway remote.Gateway, poller *poll.Poller, notifier notify.Notifier, events EventSink, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gateway: gateway,
		auth: &authenticator{
			gateway:  gateway,
			poller:   poller,
			notifier: notifier,
			logger:   logger,
		},
		poller:   poller,
		notifier: notifier,
		events:   events,
		logger:   logger,
	}
}

// Deploy выполняет деплой и возвращает запись о нём.
//
// Запись возвращается и при ошибке: в ней заполнены JobID (если submit
// прошёл), Status и Error.
func (o *Orchestrator) Deploy(ctx context.Context, req DeployRequest) (domain.DeploymentRecord, error) {
	record := domain.DeploymentRecord{
		ID:        uuid.New(),
		SessionID: req.SessionID,
		Source:    req.Source,
		Target:    req.Target,
		Selection: req.Selection.Clone(),
		StartedAt: time.Now(),
	}

	logger := telemetry.WithEnvironment(o.logger, req.Source, req.Target)
	logger.Info("deployment started", "components", record.Selection.Count())

	err := o.run(ctx, &record, logger)

	record.FinishedAt = time.Now()
	if err != nil {
		record.Error = err.Error()
	}

	telemetry.RecordDeployment(deploymentResult(err))
	logger.Info("deployment finished",
		"job_id", record.JobID,
		"success", record.Success,
		"status", record.Status,
		"duration", record.Duration(),
		"error", record.Error,
	)

	o.publish(ctx, record, logger)
	return record, err
}

func (o *Orchestrator) run(ctx context.Context, record *domain.DeploymentRecord, logger *slog.Logger) error {
	if record.Selection.IsEmpty() {
		err := domain.NewValidationError("selection", "Select at least one component to deploy")
		reportError(ctx, o.notifier, err)
		return err
	}

	if err := o.auth.Authenticate(ctx, record.Target); err != nil {
		return err
	}

	jobID, err := o.gateway.SubmitDeployment(ctx, record.Selection, record.Source, record.Target)
	if err != nil {
		reportError(ctx, o.notifier, err)
		return err
	}
	record.JobID = jobID

	job := domain.DeploymentJob{JobID: jobID, Status: domain.JobStatePending, Target: record.Target}
	telemetry.WithJobID(logger, jobID).Info("deployment submitted")

	result, err := o.poller.Wait(ctx, jobID, o.gateway.GetStatus)
	record.Status = result.Status.Status
	if err != nil {
		reportError(ctx, o.notifier, err)
		return err
	}

	job.Observe(result.Status)
	if job.Status != domain.JobStateSuccess {
		o.notifier.Notify(ctx, domain.NewNotification(domain.SeverityError, TitleDeploymentFailed,
			failedStatusMessage(result.Status.Status)))
		return fmt.Errorf("%w: job %s: status %s", domain.ErrDeploymentFailed, jobID, result.Status.Status)
	}

	record.Success = true
	o.notifier.Notify(ctx, domain.NewNotification(domain.SeveritySuccess, TitleSuccess,
		"Deployment completed successfully."))
	return nil
}

// publish отправляет запись в EventSink. Ошибка только логируется.
func (o *Orchestrator) publish(ctx context.Context, record domain.DeploymentRecord, logger *slog.Logger) {
	if o.events == nil {
		return
	}
	if err := o.events.PublishDeploymentCompleted(context.WithoutCancel(ctx), record); err != nil {
		logger.Warn("failed to publish deployment event", "error", err)
	}
}

func deploymentResult(err error) string {
	switch {
	case err == nil:
		return telemetry.DeploymentResultSucceeded
	case errors.Is(err, domain.ErrDeploymentFailed):
		return telemetry.DeploymentResultFailed
	case errors.Is(err, domain.ErrAuthorizationFailed):
		return telemetry.DeploymentResultUnauthorized
	case errors.Is(err, domain.ErrDeploymentTimeout):
		return telemetry.DeploymentResultTimeout
	default:
		return telemetry.DeploymentResultError
	}
}

// --- Wizard ---

// Deploy деплоит текущий выбор из source в target.
//
// Доступен только на последнем шаге. Шаг и выбор после деплоя
// не меняются ни при успехе, ни при ошибке.
func (w *Wizard) Deploy(ctx context.Context) (domain.DeploymentRecord, error) {
	if err := w.begin(); err != nil {
		return domain.DeploymentRecord{}, err
	}
	defer w.end()

	w.mu.Lock()
	step := w.step
	req := DeployRequest{
		SessionID: w.sessionID,
		Source:    w.source,
		Target:    w.target,
		Selection: w.selection.Clone(),
	}
	w.mu.Unlock()

	if step != domain.StepReviewAndDeploy {
		err := domain.NewValidationError("step", "Deploy is only available on step "+domain.StepReviewAndDeploy.String())
		reportError(ctx, w.notifier, err)
		return domain.DeploymentRecord{}, err
	}

	ctx, cancel := w.opContext(ctx)
	defer cancel()

	record, err := w.deployer.Deploy(ctx, req)

	w.mu.Lock()
	if !w.closed {
		w.lastDeployment = &record
	}
	w.mu.Unlock()

	return record, err
}
