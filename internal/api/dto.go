package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/session"
	"github.com/shaiso/metamigrate/internal/wizard"
)

// Environment DTOs

// RegisterEnvironmentResponse — ответ на регистрацию окружения.
type RegisterEnvironmentResponse struct {
	JobID string `json:"job_id"`
	Label string `json:"label"`
}

// Session DTOs

// SessionResponse — состояние сессии визарда.
//
// Notifications — уведомления, накопленные с прошлого ответа;
// каждый ответ забирает их из inbox.
type SessionResponse struct {
	ID            uuid.UUID             `json:"id"`
	CreatedAt     time.Time             `json:"created_at"`
	State         wizard.State          `json:"state"`
	Operation     *session.Operation    `json:"operation,omitempty"`
	Notifications []domain.Notification `json:"notifications"`
}

// SessionFromDomain собирает SessionResponse и забирает уведомления из inbox.
func SessionFromDomain(s *session.Session) SessionResponse {
	notifications := s.Inbox.Drain()
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return SessionResponse{
		ID:            s.ID,
		CreatedAt:     s.CreatedAt,
		State:         s.Wizard.State(),
		Operation:     s.Operation(),
		Notifications: notifications,
	}
}

// SelectOrgsRequest — выбор source и target.
type SelectOrgsRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// SelectTypesRequest — выбор типов метаданных.
type SelectTypesRequest struct {
	Types []string `json:"types"`
}

// RowRef — ссылка на строку каталога.
type RowRef struct {
	Type     string `json:"type"`
	FullName string `json:"fullName"`
}

// SelectRowsRequest — выбор компонентов.
type SelectRowsRequest struct {
	Rows []RowRef `json:"rows"`
}

// Descriptors возвращает строки в виде domain.MetadataDescriptor.
func (r SelectRowsRequest) Descriptors() []domain.MetadataDescriptor {
	out := make([]domain.MetadataDescriptor, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = domain.MetadataDescriptor{Type: row.Type, FullName: row.FullName}
	}
	return out
}

// DescriptorsResponse — загруженные компоненты.
type DescriptorsResponse struct {
	Rows []domain.MetadataDescriptor `json:"rows"`
}

// Deployment DTOs

// DeploymentResponse — запись журнала деплоев.
type DeploymentResponse struct {
	ID         uuid.UUID           `json:"id"`
	SessionID  *uuid.UUID          `json:"session_id,omitempty"`
	JobID      string              `json:"job_id,omitempty"`
	Source     string              `json:"source"`
	Target     string              `json:"target"`
	Selection  domain.SelectionSet `json:"selection"`
	Components int                 `json:"components"`
	Success    bool                `json:"success"`
	Status     string              `json:"status,omitempty"`
	Error      string              `json:"error,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	DurationMs int64               `json:"duration_ms"`
}

// DeploymentFromDomain конвертирует domain.DeploymentRecord в DeploymentResponse.
func DeploymentFromDomain(r domain.DeploymentRecord) DeploymentResponse {
	resp := DeploymentResponse{
		ID:         r.ID,
		JobID:      r.JobID,
		Source:     r.Source,
		Target:     r.Target,
		Selection:  r.Selection,
		Components: r.Selection.Count(),
		Success:    r.Success,
		Status:     r.Status,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
	}
	if r.SessionID != uuid.Nil {
		id := r.SessionID
		resp.SessionID = &id
	}
	return resp
}
