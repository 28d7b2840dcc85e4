package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/metamigrate/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений.
const (
	MessageTypeDeploymentCompleted MessageType = "deployment.completed"
	MessageTypeNotification        MessageType = "notification"
)

// Message — конверт сообщения.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NotificationPayload — payload уведомления.
type NotificationPayload struct {
	// Source — отправитель (обычно id сессии).
	Source       string              `json:"source"`
	Notification domain.Notification `json:"notification"`
}

// NewMessage упаковывает payload в конверт.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   body,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Publisher публикует события в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение как persistent JSON.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,              // mandatory
			false,              // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishDeploymentCompleted публикует запись о завершённом деплое.
// Потребитель: metamigrate-auditor.
func (p *Publisher) PublishDeploymentCompleted(ctx context.Context, record domain.DeploymentRecord) error {
	msg, err := NewMessage(MessageTypeDeploymentCompleted, record)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeEvents, RoutingKeyDeploymentCompleted, msg)
}

// PublishNotification публикует уведомление.
func (p *Publisher) PublishNotification(ctx context.Context, source string, n domain.Notification) error {
	msg, err := NewMessage(MessageTypeNotification, NotificationPayload{Source: source, Notification: n})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeEvents, RoutingKeyNotification, msg)
}
