package domain

import "errors"

// Ошибки миграционного процесса.
var (
	// ErrFetch — удалённый вызов отклонён (сеть, платформа, неожиданный ответ).
	ErrFetch = errors.New("remote call failed")

	// ErrAuthExpired — токен окружения истёк. Не ретраится.
	ErrAuthExpired = errors.New("token expired")

	// ErrValidation — выбор пользователя нарушает условие перехода.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorizationFailed — задача авторизации окружения завершилась неуспешно.
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrDeploymentFailed — задача дошла до финального статуса с success=false.
	ErrDeploymentFailed = errors.New("deployment failed")

	// ErrDeploymentTimeout — опрос статуса исчерпал попытки или время.
	ErrDeploymentTimeout = errors.New("deployment status polling timed out")

	// ErrBusy — предыдущий переход ещё выполняется.
	ErrBusy = errors.New("operation already in progress")

	// ErrClosed — визард закрыт.
	ErrClosed = errors.New("wizard closed")
)

// ValidationError — ошибка валидации с указанием поля.
type ValidationError struct {
	Field   string
	Message string
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap возвращает ErrValidation, чтобы работал errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
