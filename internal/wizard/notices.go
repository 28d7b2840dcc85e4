package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
)

// Заголовки уведомлений.
const (
	TitleSuccess            = "Success!"
	TitleError              = "Error!"
	TitleValidation         = "Validation Error"
	TitleTokenExpired       = "Token Expired"
	TitleAuthorization      = "Authorization Failed"
	TitleDeploymentFailed   = "Deployment Failed"
	TitleDeploymentTimeout  = "Deployment Timed Out"
	TitleRegistrationFailed = "Registration Failed"
)

// reportError превращает ошибку операции в уведомление.
// Отмена (Close или отмена запроса) не сообщается.
func reportError(ctx context.Context, n notify.Notifier, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		n.Notify(ctx, domain.NewNotification(domain.SeverityWarning, TitleValidation, verr.Message))
	case errors.Is(err, domain.ErrAuthExpired):
		n.Notify(ctx, domain.NewNotification(domain.SeverityError, TitleTokenExpired, err.Error()))
	case errors.Is(err, domain.ErrDeploymentTimeout):
		n.Notify(ctx, domain.NewNotification(domain.SeverityError, TitleDeploymentTimeout, err.Error()))
	default:
		n.Notify(ctx, domain.NewNotification(domain.SeverityError, TitleError, err.Error()))
	}
}

func failedStatusMessage(status string) string {
	return fmt.Sprintf("Status: %s. Please check the deployment details.", status)
}
