package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
	"github.com/shaiso/metamigrate/internal/telemetry"
	"github.com/shaiso/metamigrate/internal/wizard"
)

// ErrNotFound — сессии нет (не создавалась, закрыта или вытеснена).
var ErrNotFound = errors.New("session not found")

// Значения по умолчанию.
const (
	DefaultIdleTTL    = 30 * time.Minute
	DefaultInboxLimit = 100
)

// Config — конфигурация Registry.
type Config struct {
	Gateway remote.Gateway
	Poller  *poll.Poller

	// Events — получатель записей о деплоях (optional).
	Events wizard.EventSink

	// Notifier — дополнительный получатель уведомлений для сессии
	// (optional, например BusNotifier). Inbox сессии подключается всегда.
	Notifier func(sessionID uuid.UUID) notify.Notifier

	// IdleTTL — время неактивности до закрытия (default: 30m).
	IdleTTL time.Duration

	// InboxLimit — размер inbox уведомлений (default: 100).
	InboxLimit int

	Logger *slog.Logger
}

// Registry — потокобезопасное хранилище сессий.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry создаёт Registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.InboxLimit <= 0 {
		cfg.InboxLimit = DefaultInboxLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Poller == nil {
		cfg.Poller = poll.New(poll.Policy{}, cfg.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Registry{
		cfg:      cfg,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create открывает новую сессию.
func (r *Registry) Create() *Session {
	id := uuid.New()
	logger := telemetry.WithSessionID(r.logger, id.String())

	inbox := notify.NewRecorder(r.cfg.InboxLimit)
	var notifier notify.Notifier = inbox
	if r.cfg.Notifier != nil {
		notifier = notify.Multi(inbox, r.cfg.Notifier(id))
	}

	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		Inbox:     inbox,
		ctx:       r.ctx,
		logger:    logger,
		Wizard: wizard.New(wizard.Config{
			SessionID: id,
			Gateway:   r.cfg.Gateway,
			Notifier:  notifier,
			Poller:    r.cfg.Poller,
			Events:    r.cfg.Events,
			Logger:    r.logger,
		}),
		lastActive: now,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	telemetry.SessionOpened()
	logger.Info("session opened")
	return s
}

// Get возвращает сессию и отмечает её активность.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// Len возвращает количество открытых сессий.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close закрывает сессию: отменяет её операции и удаляет из реестра.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	r.shutdown(s, "closed")
	return nil
}

// Sweep закрывает сессии без активности дольше IdleTTL и без
// выполняющихся операций. Возвращает количество закрытых.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.Busy() || now.Sub(s.LastActive()) < r.cfg.IdleTTL {
			continue
		}
		expired = append(expired, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.shutdown(s, "expired")
	}
	return len(expired)
}

// CloseAll закрывает все сессии. Используется при остановке сервера.
func (r *Registry) CloseAll() {
	r.cancel()

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[uuid.UUID]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		r.shutdown(s, "shutdown")
	}
}

func (r *Registry) shutdown(s *Session, reason string) {
	s.Wizard.Close()
	s.wait()
	telemetry.SessionClosed()
	s.logger.Info("session closed", "reason", reason)
}
