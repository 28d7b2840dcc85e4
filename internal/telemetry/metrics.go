package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы опроса статуса задачи.
const (
	PollOutcomePending = "pending"
	PollOutcomeDone    = "done"
	PollOutcomeError   = "error"
	PollOutcomeTimeout = "timeout"
)

// Результаты деплоя.
const (
	DeploymentResultSucceeded    = "succeeded"
	DeploymentResultFailed       = "failed"
	DeploymentResultUnauthorized = "unauthorized"
	DeploymentResultTimeout      = "timeout"
	DeploymentResultError        = "error"
)

// Исходы обработки сообщений аудитором.
const (
	AuditResultStored    = "stored"
	AuditResultDuplicate = "duplicate"
	AuditResultError     = "error"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metamigrate_polls_total",
		Help: "Status polls issued for remote jobs, by outcome",
	}, []string{"outcome"})

	authTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metamigrate_auth_total",
		Help: "Token exchanges against environments, by resulting state",
	}, []string{"state"})

	deploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metamigrate_deployments_total",
		Help: "Finished deployments, by result",
	}, []string{"result"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "metamigrate_sessions_active",
		Help: "Wizard sessions currently open",
	})

	auditTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metamigrate_audit_messages_total",
		Help: "Messages processed by metamigrate-auditor, by queue and result",
	}, []string{"queue", "result"})

	// HTTPRequestsTotal — общее количество HTTP-запросов к API.
	HTTPRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metamigrate_api_http_requests_total",
		Help: "Total HTTP requests handled by metamigrate-api",
	})
)

// RecordPoll учитывает один опрос статуса.
func RecordPoll(outcome string) {
	pollsTotal.WithLabelValues(outcome).Inc()
}

// RecordAuth учитывает результат обмена токена.
func RecordAuth(state string) {
	authTotal.WithLabelValues(state).Inc()
}

// RecordDeployment учитывает завершённый деплой.
func RecordDeployment(result string) {
	deploymentsTotal.WithLabelValues(result).Inc()
}

// SessionOpened увеличивает счётчик открытых сессий.
func SessionOpened() {
	sessionsActive.Inc()
}

// SessionClosed уменьшает счётчик открытых сессий.
func SessionClosed() {
	sessionsActive.Dec()
}

// RecordAudit учитывает сообщение, обработанное аудитором.
func RecordAudit(queue, result string) {
	auditTotal.WithLabelValues(queue, result).Inc()
}
