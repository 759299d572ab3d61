package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// BillingExchange — exchange для событий биллинга портала.
const BillingExchange = "billing"

// Ключи маршрутизации биллинговых событий.
const (
	// RoutingKeyReconcileFailed — платёж прошёл на стороне шлюза,
	// но локальная запись не создалась; требуется ручной разбор.
	RoutingKeyReconcileFailed = "reconcile.failed"
	// RoutingKeyCancelled — пользователь отменил подписку.
	RoutingKeyCancelled = "subscription.cancelled"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// DefaultQueues — очереди биллинговых событий, которые объявляет портал.
var DefaultQueues = []QueueConfig{
	{QueueName: "billing.reconcile-failed", RoutingKey: RoutingKeyReconcileFailed},
	{QueueName: "billing.cancelled", RoutingKey: RoutingKeyCancelled},
}

// SetupChannel открывает канал, объявляет exchange и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		BillingExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			BillingExchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
