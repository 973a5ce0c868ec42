package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const attemptHeader = "x-attempt"

// HandlerFunc settles one delivery. A nil return acks the message. For a
// non-nil return the consumer asks shouldRetry whether the failure category
// is worth a redelivery.
type HandlerFunc func(ctx context.Context, body []byte) error

// ConsumerOptions bound the redelivery loop: attempts past MaxAttempts are
// dropped (the ledger sweeper is the safety net behind that).
type ConsumerOptions struct {
	Queue        string
	BindingKey   string
	MaxAttempts  int
	InitialDelay time.Duration
}

// Consumer drains the settlement queue with manual acks and a bounded,
// exponentially delayed redelivery scheme. Redelivery is a republish with an
// incremented attempt header rather than a broker nack, so the delay and the
// attempt count stay under our control.
type Consumer struct {
	channel     *amqp.Channel
	handler     HandlerFunc
	shouldRetry func(error) bool
	opts        ConsumerOptions
	logger      zerolog.Logger
}

func NewConsumer(ch *amqp.Channel, handler HandlerFunc, shouldRetry func(error) bool, opts ConsumerOptions, logger zerolog.Logger) *Consumer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return true }
	}
	return &Consumer{
		channel:     ch,
		handler:     handler,
		shouldRetry: shouldRetry,
		opts:        opts,
		logger:      logger,
	}
}

// Setup declares the exchange, the durable queue, and the binding. Safe to
// re-run; everything it declares is idempotent.
func (c *Consumer) Setup() error {
	if err := DeclareExchange(c.channel); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := c.channel.QueueDeclare(
		c.opts.Queue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := c.channel.QueueBind(q.Name, c.opts.BindingKey, Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// One unacked message at a time keeps settlement strictly sequential per
	// consumer and the broker buffer small.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Run consumes until ctx is cancelled or the channel dies.
func (c *Consumer) Run(ctx context.Context, consumerTag string) error {
	msgs, err := c.channel.Consume(
		c.opts.Queue,
		consumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	notifyClose := make(chan *amqp.Error, 1)
	c.channel.NotifyClose(notifyClose)

	c.logger.Info().Str("queue", c.opts.Queue).Msg("settlement consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chErr := <-notifyClose:
			if chErr != nil {
				return fmt.Errorf("channel closed: %w", chErr)
			}
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	attempt := attemptFromHeaders(d.Headers)

	err := c.handler(ctx, d.Body)
	if err == nil {
		c.ack(d)
		return
	}

	if !c.shouldRetry(err) || attempt+1 >= c.opts.MaxAttempts {
		c.logger.Error().Err(err).
			Int("attempt", attempt+1).
			Str("routing_key", d.RoutingKey).
			Msg("settlement job dropped")
		c.ack(d)
		return
	}

	delay := c.opts.InitialDelay << attempt
	c.logger.Warn().Err(err).
		Int("attempt", attempt+1).
		Dur("redeliver_in", delay).
		Str("routing_key", d.RoutingKey).
		Msg("settlement job scheduled for redelivery")

	// Republish after the backoff, then ack the original. The goroutine keeps
	// Qos(1) from stalling the whole consumer during the delay.
	routingKey := d.RoutingKey
	body := d.Body
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		pubErr := c.channel.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{attemptHeader: int32(attempt + 1)},
		})
		if pubErr != nil {
			// The row stays PENDING; the sweeper re-publishes it.
			c.logger.Error().Err(pubErr).Msg("redelivery publish failed")
		}
	}()
	c.ack(d)
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.logger.Error().Err(err).Msg("ack failed")
	}
}

// attemptFromHeaders reads the redelivery counter; amqp tables hand integers
// back in several widths.
func attemptFromHeaders(headers amqp.Table) int {
	v, ok := headers[attemptHeader]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

// DecodeJob is a helper for worker wiring: malformed payloads are a poison
// pill, logged and dropped rather than redelivered.
func DecodeJob[T any](body []byte) (T, error) {
	var job T
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
