// Package audit обрабатывает события metamigrate: сохраняет записи
// о деплоях в журнал и логирует уведомления.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/mq"
	"github.com/shaiso/metamigrate/internal/repo"
	"github.com/shaiso/metamigrate/internal/telemetry"
)

// Store — хранилище записей о деплоях.
type Store interface {
	Create(ctx context.Context, rec *domain.DeploymentRecord) error
}

// Handler — обработчики очередей аудитора.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// New создаёт Handler.
func New(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// HandleDeployment сохраняет запись из deployments.completed.
//
// Повторная доставка уже сохранённой записи подтверждается без ошибки.
// Запись без ID или без окружений уходит в DLQ.
func (h *Handler) HandleDeployment(ctx context.Context, msg *mq.Message) error {
	queue := string(mq.QueueDeploymentsCompleted)

	if msg.Type != mq.MessageTypeDeploymentCompleted {
		telemetry.RecordAudit(queue, telemetry.AuditResultError)
		return fmt.Errorf("%w: unexpected message type %q", mq.ErrPermanent, msg.Type)
	}

	rec, err := mq.ParsePayload[domain.DeploymentRecord](msg)
	if err != nil {
		telemetry.RecordAudit(queue, telemetry.AuditResultError)
		return err
	}
	if rec.ID == uuid.Nil || rec.Source == "" || rec.Target == "" {
		telemetry.RecordAudit(queue, telemetry.AuditResultError)
		return fmt.Errorf("%w: incomplete deployment record %s", mq.ErrPermanent, rec.ID)
	}

	logger := telemetry.WithEnvironment(h.logger, rec.Source, rec.Target).With("deployment_id", rec.ID)

	if err := h.store.Create(ctx, &rec); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			telemetry.RecordAudit(queue, telemetry.AuditResultDuplicate)
			logger.Debug("deployment already recorded")
			return nil
		}
		telemetry.RecordAudit(queue, telemetry.AuditResultError)
		return fmt.Errorf("store deployment: %w", err)
	}

	telemetry.RecordAudit(queue, telemetry.AuditResultStored)
	logger.Info("deployment recorded",
		"success", rec.Success,
		"components", rec.Selection.Count(),
		"duration", rec.Duration(),
	)
	return nil
}

// HandleNotification пишет уведомление из очереди notifications в лог.
func (h *Handler) HandleNotification(_ context.Context, msg *mq.Message) error {
	queue := string(mq.QueueNotifications)

	payload, err := mq.ParsePayload[mq.NotificationPayload](msg)
	if err != nil {
		telemetry.RecordAudit(queue, telemetry.AuditResultError)
		return err
	}

	n := payload.Notification
	level := slog.LevelInfo
	switch n.Severity {
	case domain.SeverityWarning:
		level = slog.LevelWarn
	case domain.SeverityError:
		level = slog.LevelError
	}

	h.logger.Log(context.Background(), level, "notification",
		"source", payload.Source,
		"title", n.Title,
		"message", n.Message,
		"severity", n.Severity,
	)
	telemetry.RecordAudit(queue, telemetry.AuditResultStored)
	return nil
}
