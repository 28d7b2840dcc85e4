package domain

import "time"

// Severity — уровень уведомления.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification — уведомление пользователю (toast).
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification создаёт уведомление с текущим временем.
func NewNotification(severity Severity, title, message string) Notification {
	return Notification{
		Title:     title,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}
}
