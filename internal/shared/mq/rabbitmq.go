package mq

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"logileet/internal/shared/models"
)

// StatusExchange carries delivery lifecycle events for external consumers
// (dashboards, analytics). Publishing is best-effort: the hub broadcast and
// the persisted state never depend on it.
const StatusExchange = "delivery_topic"

func ConnectToRMQ(cfg *models.RabbitMQConfig) (*amqp091.Connection, *amqp091.Channel, error) {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.User, cfg.Password, cfg.Host, cfg.Port)

	var conn *amqp091.Connection
	var ch *amqp091.Channel
	var err error

	for i := 0; i < 10; i++ {
		conn, err = amqp091.Dial(dsn)
		if err == nil {
			ch, err = conn.Channel()
			if err == nil {
				return conn, ch, nil
			}
			conn.Close()
		}
		log.Printf("RabbitMQ not ready (attempt %d/10): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}

	return nil, nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
}

func DeclareStatusExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		StatusExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

type Publisher struct {
	ch *amqp091.Channel
	mu sync.Mutex
}

func NewPublisher(ch *amqp091.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp091.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
}
