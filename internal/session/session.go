package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/wizard"
)

// Operation — фоновая операция сессии.
type Operation struct {
	Name       string     `json:"name"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Running возвращает true, пока операция выполняется.
func (o *Operation) Running() bool {
	return o.FinishedAt == nil
}

// Session — открытая сессия визарда.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Wizard    *wizard.Wizard
	Inbox     *notify.Recorder

	// ctx — время жизни сессии для фоновых операций.
	ctx    context.Context
	logger *slog.Logger

	mu         sync.Mutex
	lastActive time.Time
	op         *Operation
	wg         sync.WaitGroup
}

// Touch обновляет время последней активности.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive возвращает время последней активности.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Operation возвращает копию последней фоновой операции (nil, если не было).
func (s *Session) Operation() *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.op == nil {
		return nil
	}
	op := *s.op
	return &op
}

// Busy возвращает true, пока выполняется фоновая операция.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.op != nil && s.op.Running()
}

// Go запускает fn в фоне. Одновременно выполняется одна операция:
// пока предыдущая не завершилась, возвращается domain.ErrBusy.
//
// Ошибка fn сохраняется в Operation; пользователю она уже сообщена
// уведомлением визарда.
func (s *Session) Go(name string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	if s.op != nil && s.op.Running() {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	op := &Operation{Name: name, StartedAt: time.Now()}
	s.op = op
	s.lastActive = op.StartedAt
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		err := fn(s.ctx)

		s.mu.Lock()
		now := time.Now()
		op.FinishedAt = &now
		if err != nil {
			op.Error = err.Error()
		}
		s.lastActive = now
		s.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("session operation failed", "operation", name, "error", err)
		} else {
			s.logger.Debug("session operation finished", "operation", name)
		}
	}()

	return nil
}

// wait ждёт завершения фоновых операций.
func (s *Session) wait() {
	s.wg.Wait()
}
