// Package rabbitmq содержит подключение к RabbitMQ и публикацию событий журнала.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// ExchangeLedger — topic-exchange, в который публикуются события журнала.
const ExchangeLedger = "ledger.events"

// QueueConfig описывает очередь и ключ маршрутизации для привязки.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetLedgerQueues возвращает очереди, которые объявляются при старте.
func GetLedgerQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "ledger.membership", RoutingKey: "membership.*"},
		{QueueName: "ledger.referral", RoutingKey: "referral.*"},
	}
}

// Connect подключается к брокеру, повторяя попытку retries раз с паузой delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// SetupChannel открывает канал, объявляет exchange и привязывает очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.ExchangeDeclare(ExchangeLedger, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, ExchangeLedger, false, nil); err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
