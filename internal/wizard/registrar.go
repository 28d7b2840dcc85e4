package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
)

// Registrar регистрирует новое окружение.
type Registrar struct {
	gateway  remote.Gateway
	poller   *poll.Poller
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewRegistrar создаёт Registrar.
func NewRegistrar(gateway remote.Gateway, poller *poll.Poller, notifier notify.Notifier, logger *slog.Logger) *Registrar {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{gateway: gateway, poller: poller, notifier: notifier, logger: logger}
}

// Register проверяет учётные данные, отправляет регистрацию
// и ждёт завершения задачи. Возвращает id задачи.
func (r *Registrar) Register(ctx context.Context, creds domain.EnvironmentCredentials) (string, error) {
	jobID, err := r.Submit(ctx, creds)
	if err != nil {
		return "", err
	}
	return jobID, r.Await(ctx, jobID, creds.Label)
}

// Submit проверяет учётные данные и отправляет регистрацию.
func (r *Registrar) Submit(ctx context.Context, creds domain.EnvironmentCredentials) (string, error) {
	if err := creds.Validate(); err != nil {
		reportError(ctx, r.notifier, err)
		return "", err
	}

	jobID, err := r.gateway.RegisterEnvironment(ctx, creds)
	if err != nil {
		reportError(ctx, r.notifier, err)
		return "", err
	}

	r.logger.Info("environment registration submitted", "label", creds.Label, "job_id", jobID)
	return jobID, nil
}

// Await ждёт завершения задачи регистрации и сообщает результат.
func (r *Registrar) Await(ctx context.Context, jobID, label string) error {
	result, err := r.poller.Wait(ctx, jobID, r.gateway.GetStatus)
	if err != nil {
		reportError(ctx, r.notifier, err)
		return err
	}

	if !result.Succeeded() {
		r.notifier.Notify(ctx, domain.NewNotification(domain.SeverityError, TitleRegistrationFailed,
			fmt.Sprintf("Status: %s", result.Status.Status)))
		return fmt.Errorf("%w: registration job %s: %s",
			domain.ErrDeploymentFailed, jobID, result.Status.Status)
	}

	r.logger.Info("environment registered", "label", label, "job_id", jobID)
	r.notifier.Notify(ctx, domain.NewNotification(domain.SeveritySuccess, TitleSuccess,
		fmt.Sprintf("Environment %s registered successfully.", label)))
	return nil
}
