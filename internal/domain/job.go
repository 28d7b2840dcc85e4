package domain

import "strings"

// JobState — статус удалённой асинхронной задачи.
//
// Жизненный цикл:
//
//	PENDING → SUCCESS
//	        ↘ FAILED
type JobState string

const (
	// JobStatePending — задача ещё выполняется.
	JobStatePending JobState = "pending"

	// JobStateSuccess — задача завершилась успешно.
	JobStateSuccess JobState = "success"

	// JobStateFailed — задача завершилась с ошибкой.
	JobStateFailed JobState = "failed"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobState) IsTerminal() bool {
	return s == JobStateSuccess || s == JobStateFailed
}

// JobStatus — одно наблюдение статуса задачи (ответ getStatus).
type JobStatus struct {
	Done    bool   `json:"done"`
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// State переводит наблюдение в JobState.
func (s JobStatus) State() JobState {
	switch {
	case !s.Done:
		return JobStatePending
	case s.Success:
		return JobStateSuccess
	default:
		return JobStateFailed
	}
}

// DeploymentJob — отправленный на удалённую сторону перенос метаданных.
//
// Создаётся при submit, опрашивается по JobID до финального статуса
// и после этого не хранится.
type DeploymentJob struct {
	JobID  string
	Status JobState
	Target string
}

// Observe применяет наблюдение статуса к задаче.
func (j *DeploymentJob) Observe(s JobStatus) {
	j.Status = s.State()
}

// TokenKind — вид результата обмена учётных данных на токен.
type TokenKind int

const (
	// TokenValid — токен действителен, можно продолжать.
	TokenValid TokenKind = iota + 1

	// TokenExpired — токен истёк, нужна повторная авторизация вне визарда.
	TokenExpired

	// TokenPending — обмен асинхронный, JobID нужно опрашивать.
	TokenPending
)

// String возвращает строковое представление TokenKind.
func (k TokenKind) String() string {
	switch k {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	case TokenPending:
		return "pending"
	default:
		return "unknown"
	}
}

// TokenState — явный размеченный результат authenticate.
type TokenState struct {
	Kind  TokenKind
	JobID string // только для TokenPending
}

// Значения, которые удалённая сторона возвращает вместо job id.
const (
	tokenWireValid   = "Valid"
	tokenWireExpired = "Expired"
)

// ParseTokenState разбирает строковый ответ удалённой стороны:
// "Valid", "Expired" или идентификатор задачи.
func ParseTokenState(raw string) (TokenState, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case tokenWireValid:
		return TokenState{Kind: TokenValid}, nil
	case tokenWireExpired:
		return TokenState{Kind: TokenExpired}, nil
	case "":
		return TokenState{}, NewValidationError("token", "empty token response")
	default:
		return TokenState{Kind: TokenPending, JobID: raw}, nil
	}
}
