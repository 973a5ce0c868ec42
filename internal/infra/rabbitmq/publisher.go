package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Exchange carrying settlement jobs. Topic type so the worker binds with a
// single "settlement.#" pattern.
const Exchange = "settlement_jobs"

// Publisher implements gateway.JobPublisher on a RabbitMQ channel. Messages
// are persistent so jobs survive a broker restart.
type Publisher struct {
	channel *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{channel: ch}
}

// DeclareExchange is idempotent and safe to call from every process that
// touches the exchange.
func DeclareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	bytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         bytes,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}

	log.Debug().Str("routing_key", routingKey).Msg("settlement job published")
	return nil
}
