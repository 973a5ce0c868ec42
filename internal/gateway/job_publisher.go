package gateway

import "context"

// JobPublisher hands a settlement job to the at-least-once delivery channel.
// The body is JSON-serialized by the implementation.
type JobPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}
