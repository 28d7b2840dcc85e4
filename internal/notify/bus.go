package notify

import (
	"context"
	"log/slog"

	"github.com/shaiso/metamigrate/internal/domain"
)

// Publisher публикует уведомления в шину сообщений.
// Реализуется mq.Publisher.
type Publisher interface {
	PublishNotification(ctx context.Context, source string, n domain.Notification) error
}

// BusNotifier пересылает уведомления в шину сообщений.
//
// Ошибка публикации логируется и не прерывает работу визарда.
type BusNotifier struct {
	publisher Publisher
	source    string
	logger    *slog.Logger
}

// NewBusNotifier создаёт BusNotifier. source — идентификатор отправителя
// (обычно id сессии).
func NewBusNotifier(publisher Publisher, source string, logger *slog.Logger) *BusNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusNotifier{publisher: publisher, source: source, logger: logger}
}

// Notify реализует Notifier.
func (b *BusNotifier) Notify(ctx context.Context, n domain.Notification) {
	// Уведомление о завершении операции не должно теряться из-за отмены запроса
	ctx = context.WithoutCancel(ctx)

	if err := b.publisher.PublishNotification(ctx, b.source, n); err != nil {
		b.logger.Warn("failed to publish notification",
			"source", b.source,
			"title", n.Title,
			"error", err,
		)
	}
}
