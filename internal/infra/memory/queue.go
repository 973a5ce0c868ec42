package memory

import (
	"context"
	"sync"
)

// PublishedJob captures one Publish call.
type PublishedJob struct {
	RoutingKey string
	Body       interface{}
}

// Queue is an in-memory gateway.JobPublisher. Tests inspect the published
// jobs, optionally hand them to a delivery hook, or make publishing fail to
// exercise the queue-dispatch error path.
type Queue struct {
	mu        sync.Mutex
	published []PublishedJob
	failWith  error
	deliver   func(routingKey string, body interface{})
}

func NewQueue() *Queue {
	return &Queue{}
}

// OnPublish installs a synchronous delivery hook, letting tests route jobs
// straight into a settlement processor.
func (q *Queue) OnPublish(fn func(routingKey string, body interface{})) {
	q.mu.Lock()
	q.deliver = fn
	q.mu.Unlock()
}

// FailWith makes every subsequent Publish return err. Pass nil to recover.
func (q *Queue) FailWith(err error) {
	q.mu.Lock()
	q.failWith = err
	q.mu.Unlock()
}

func (q *Queue) Publish(_ context.Context, routingKey string, body interface{}) error {
	q.mu.Lock()
	if q.failWith != nil {
		defer q.mu.Unlock()
		return q.failWith
	}
	q.published = append(q.published, PublishedJob{RoutingKey: routingKey, Body: body})
	deliver := q.deliver
	q.mu.Unlock()

	if deliver != nil {
		deliver(routingKey, body)
	}
	return nil
}

// Jobs returns a snapshot of everything published so far.
func (q *Queue) Jobs() []PublishedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PublishedJob, len(q.published))
	copy(out, q.published)
	return out
}
