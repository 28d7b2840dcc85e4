package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
	"github.com/shaiso/metamigrate/internal/telemetry"
)

// authenticator выполняет обмен токена и, если он асинхронный,
// дожидается задачи авторизации.
type authenticator struct {
	gateway  remote.Gateway
	poller   *poll.Poller
	notifier notify.Notifier
	logger   *slog.Logger
}

// Authenticate возвращает nil, только если окружение готово к вызовам.
//
// Expired не ретраится: пользователь должен переавторизовать окружение.
func (a *authenticator) Authenticate(ctx context.Context, environmentID string) error {
	state, err := a.gateway.Authenticate(ctx, environmentID)
	if err != nil {
		reportError(ctx, a.notifier, err)
		return err
	}
	telemetry.RecordAuth(state.Kind.String())

	switch state.Kind {
	case domain.TokenValid:
		return nil

	case domain.TokenExpired:
		a.logger.Warn("environment token expired", "environment", environmentID)
		a.notifier.Notify(ctx, domain.NewNotification(domain.SeverityError, TitleTokenExpired,
			fmt.Sprintf("Access token for %s has expired. Re-authorize the environment and try again.", environmentID)))
		return fmt.Errorf("%w: environment %s", domain.ErrAuthExpired, environmentID)

	case domain.TokenPending:
		a.logger.Info("waiting for authorization job",
			"environment", environmentID,
			"job_id", state.JobID,
		)
		result, err := a.poller.Wait(ctx, state.JobID, a.gateway.GetStatus)
		if err != nil {
			reportError(ctx, a.notifier, err)
			return err
		}
		if !result.Succeeded() {
			a.notifier.Notify(ctx, domain.NewNotification(domain.SeverityError, TitleAuthorization,
				fmt.Sprintf("Status: %s", result.Status.Status)))
			return fmt.Errorf("%w: authorization job %s: %s",
				domain.ErrAuthorizationFailed, state.JobID, result.Status.Status)
		}
		return nil

	default:
		err := fmt.Errorf("%w: unexpected token state %d", domain.ErrFetch, state.Kind)
		reportError(ctx, a.notifier, err)
		return err
	}
}
