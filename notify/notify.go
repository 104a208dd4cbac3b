// Package notify publishes notifications raised inside a scope. Scoped
// notifications are held back until the root scope commits and dropped when
// it aborts.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	errs "github.com/amp-labs/amp-uow/errors"
	"github.com/amp-labs/amp-uow/logger"
)

// Notification is one published event.
type Notification struct {
	Topic   string
	Payload any
}

// Handler receives notifications for a topic.
type Handler func(ctx context.Context, n Notification) error

// Option configures a Publisher.
type Option func(*Publisher)

// WithWorkers dispatches handlers on a worker pool of the given size instead
// of the publishing goroutine. Publish still waits for every handler.
func WithWorkers(count int) Option {
	return func(p *Publisher) {
		if count > 0 {
			p.pool = pond.NewPool(count)
		}
	}
}

// Publisher fans notifications out to subscribed handlers.
type Publisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	pool     pond.Pool
}

// NewPublisher returns a publisher without subscribers.
func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{handlers: make(map[string][]Handler)}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Subscribe registers handler for topic. The topic "*" receives everything.
func (p *Publisher) Subscribe(topic string, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handlers[topic] = append(p.handlers[topic], handler)
}

func (p *Publisher) handlersFor(topic string) []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Handler, 0, len(p.handlers[topic])+len(p.handlers["*"]))
	out = append(out, p.handlers[topic]...)

	if topic != "*" {
		out = append(out, p.handlers["*"]...)
	}

	return out
}

// Publish delivers n to every handler right away and returns their failures.
func (p *Publisher) Publish(ctx context.Context, n Notification) error {
	handlers := p.handlersFor(n.Topic)
	if len(handlers) == 0 {
		return nil
	}

	logger.Get(ctx).Debug("publishing notification", "topic", n.Topic, "handlers", len(handlers))

	if p.pool == nil {
		var collected errs.Collection

		for _, h := range handlers {
			collected.Add(invoke(ctx, h, n))
		}

		return collected.GetError()
	}

	tasks := make([]pond.Task, len(handlers))

	for i, h := range handlers {
		tasks[i] = p.pool.SubmitErr(func() error {
			return invoke(ctx, h, n)
		})
	}

	var collected errs.Collection

	for _, task := range tasks {
		collected.Add(task.Wait())
	}

	return collected.GetError()
}

func invoke(ctx context.Context, h Handler, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %q: %w", n.Topic, errs.Recovered(r))
		}
	}()

	return h(ctx, n)
}

// Close stops the worker pool, waiting for running handlers.
func (p *Publisher) Close() error {
	if p.pool != nil {
		p.pool.StopAndWait()
	}

	return nil
}

// Batch starts a scoped queue of notifications.
func (p *Publisher) Batch() *Batch {
	return &Batch{publisher: p}
}

// Batch holds notifications until its scope resolves.
type Batch struct {
	publisher *Publisher
	mu        sync.Mutex
	queued    []Notification
}

// Queue holds n back until Flush.
func (b *Batch) Queue(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queued = append(b.queued, n)
}

// Len returns the number of held notifications.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.queued)
}

// Flush publishes the held notifications in order when completed is true and
// drops them otherwise. Every notification is attempted.
func (b *Batch) Flush(ctx context.Context, completed bool) error {
	b.mu.Lock()
	queued := b.queued
	b.queued = nil
	b.mu.Unlock()

	if !completed {
		if len(queued) > 0 {
			logger.Get(ctx).Debug("dropping scoped notifications", "count", len(queued))
		}

		return nil
	}

	var collected errs.Collection

	for _, n := range queued {
		collected.Add(b.publisher.Publish(ctx, n))
	}

	return collected.GetError()
}
