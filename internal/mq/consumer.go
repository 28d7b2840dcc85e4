package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает сообщение.
// Ошибка — nack: первая доставка возвращается в очередь,
// повторная уходит в DLQ.
type Handler func(ctx context.Context, msg *Message) error

// ErrPermanent оборачивает ошибки, которые бессмысленно ретраить.
// Такие сообщения сразу уходят в DLQ.
var ErrPermanent = errors.New("permanent failure")

// Consumer потребляет сообщения из очереди.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сообщений без ack на канал (default: 1).
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", string(cfg.Queue)),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: cfg.Prefetch,
	}
}

// Run потребляет сообщения до отмены ctx. Переживает переподключения.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.setup()
		if err != nil {
			c.logger.Error("failed to setup consume", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.process(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) setup() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// process читает deliveries до отмены ctx или закрытия канала.
func (c *Consumer) process(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "body", string(raw.Body))
		raw.Nack(false, false)
		return
	}

	logger := c.logger.With("message_id", msg.ID, "type", msg.Type)
	logger.Debug("received message")

	if err := c.handler(ctx, &msg); err != nil {
		requeue := !raw.Redelivered && !errors.Is(err, ErrPermanent)
		logger.Error("handler failed", "error", err, "requeue", requeue)
		raw.Nack(false, requeue)
		return
	}

	raw.Ack(false)
}

// ParsePayload разбирает payload сообщения в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("%w: unmarshal %s payload: %w", ErrPermanent, msg.Type, err)
	}
	return result, nil
}
