package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeEvents Exchange = "metamigrate.events"
	ExchangeDLQ    Exchange = "metamigrate.dlq"
)

// Queues.
const (
	QueueDeploymentsCompleted Queue = "deployments.completed"
	QueueNotifications        Queue = "notifications"
	QueueDLQEvents            Queue = "dlq.events"
)

// Routing keys.
const (
	RoutingKeyDeploymentCompleted RoutingKey = "deployment.completed"
	RoutingKeyNotification        RoutingKey = "notification"
	RoutingKeyDLQEvents           RoutingKey = "events"
)

// SetupTopology объявляет exchanges, queues и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeEvents, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQEvents),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// deployments.completed — аудит, записи не должны теряться
		{QueueDeploymentsCompleted, dlqArgs},

		// notifications — только лог, без DLQ
		{QueueNotifications, nil},

		{QueueDLQEvents, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueDeploymentsCompleted, RoutingKeyDeploymentCompleted, ExchangeEvents},
		{QueueNotifications, RoutingKeyNotification, ExchangeEvents},
		{QueueDLQEvents, RoutingKeyDLQEvents, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  metamigrate RabbitMQ topology:

    metamigrate.events (direct)
    ├── deployments.completed [routing: deployment.completed]
    │       Consumer: metamigrate-auditor
    │       DLQ: dlq.events
    └── notifications [routing: notification]
            Consumer: metamigrate-auditor (log)

    metamigrate.dlq (direct)
    └── dlq.events [routing: events]
            Manual processing
  `
}
