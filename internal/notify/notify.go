// Package notify доставляет пользовательские уведомления (toasts).
//
// Компоненты визарда получают Notifier через Config и не знают,
// куда уходит уведомление: в inbox сессии (Recorder), в лог (LogNotifier),
// в шину сообщений (BusNotifier) или во всё сразу (Multi).
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shaiso/metamigrate/internal/domain"
)

// Notifier — получатель уведомлений. Доставка best-effort.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// NotifierFunc — адаптер функции к Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notification)

// Notify реализует Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n domain.Notification) {
	f(ctx, n)
}

// Discard — Notifier, который ничего не делает.
var Discard Notifier = NotifierFunc(func(context.Context, domain.Notification) {})

// --- Recorder ---

// Recorder накапливает уведомления в памяти (inbox сессии).
type Recorder struct {
	mu    sync.Mutex
	items []domain.Notification
	limit int
}

// NewRecorder создаёт Recorder, хранящий не больше limit последних
// уведомлений (limit <= 0 — без ограничения).
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Notify реализует Notifier.
func (r *Recorder) Notify(_ context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, n)
	if r.limit > 0 && len(r.items) > r.limit {
		r.items = r.items[len(r.items)-r.limit:]
	}
}

// All возвращает копию накопленных уведомлений.
func (r *Recorder) All() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.items...)
}

// Drain возвращает накопленные уведомления и очищает inbox.
func (r *Recorder) Drain() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.items
	r.items = nil
	return items
}

// Last возвращает последнее уведомление.
func (r *Recorder) Last() (domain.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) == 0 {
		return domain.Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// --- LogNotifier ---

// LogNotifier пишет уведомления в лог. Уровень зависит от severity.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify реализует Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) {
	level := slog.LevelInfo
	switch n.Severity {
	case domain.SeverityWarning:
		level = slog.LevelWarn
	case domain.SeverityError:
		level = slog.LevelError
	}

	l.logger.Log(ctx, level, "notification",
		"title", n.Title,
		"message", n.Message,
		"severity", n.Severity,
	)
}

// --- Multi ---

// Multi рассылает уведомление всем получателям по порядку. nil пропускаются.
func Multi(notifiers ...Notifier) Notifier {
	list := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}

	return NotifierFunc(func(ctx context.Context, n domain.Notification) {
		for _, target := range list {
			target.Notify(ctx, n)
		}
	})
}
