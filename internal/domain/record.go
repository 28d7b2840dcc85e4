package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeploymentRecord — запись журнала о завершённом деплое.
//
// Создаётся оркестратором, когда деплой дошёл до финального состояния
// (успех, ошибка, таймаут), и сохраняется аудитором в БД.
type DeploymentRecord struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// SessionID — сессия визарда, из которой запущен деплой.
	// Nil для деплоев вне сессии.
	SessionID uuid.UUID `json:"session_id"`

	// JobID — идентификатор удалённой задачи (пустой, если submit не удался).
	JobID string `json:"job_id,omitempty"`

	Source string `json:"source"`
	Target string `json:"target"`

	// Selection — перенесённые компоненты.
	Selection SelectionSet `json:"selection"`

	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration возвращает продолжительность деплоя.
func (r *DeploymentRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
