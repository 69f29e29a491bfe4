package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
)

// PublishMessage публикует сообщение в формате JSON.
func PublishMessage(ch *amqp.Channel, exchange string, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует события журнала в ExchangeLedger.
// amqp.Channel не потокобезопасен, поэтому публикации сериализуются.
type Publisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher создаёт Publisher поверх настроенного канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish отправляет событие с ключом маршрутизации routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, event any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rabbitmq.Publish: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return PublishMessage(p.ch, ExchangeLedger, routingKey, event)
}

// Close закрывает канал.
func (p *Publisher) Close() error {
	return p.ch.Close()
}
