// Package worker drains outbound queues and writes messages to clients.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/bodytap/internal/adapters/mq/queue"
	"github.com/okian/bodytap/pkg/logger"
	"github.com/okian/bodytap/pkg/metrics"
)

// Sender writes one message to a client.
type Sender interface {
	Send(ctx context.Context, m queue.Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, m queue.Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, m queue.Message) error { return f(ctx, m) }

// Queue defines how dispatchers receive messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Message
}

// Dispatcher delivers queued messages in order through a Sender. It stops at
// the first failed send: the client is assumed gone.
type Dispatcher struct {
	queue  Queue
	sender Sender
	name   string

	// Shutdown control
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	// Logging
	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(q Queue, s Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:    q,
		sender:   s,
		name:     "dispatcher", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("dispatcher"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	// Set up logger with dispatcher name if not already set
	if d.name != "dispatcher" {
		d.logger = d.logger.Named(d.name)
	}

	return d
}

// Run delivers messages until the queue is closed and drained, ctx is done,
// Shutdown is called, or a send fails. Only a failed send is returned as an
// error.
func (d *Dispatcher) Run(ctx context.Context) error {
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		close(d.done)
	}()

	messages := d.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.shutdown:
			return nil
		case m, ok := <-messages:
			if !ok {
				// Queue closed and drained
				return nil
			}
			if err := d.deliver(ctx, m); err != nil {
				return err
			}
		}
	}
}

// Shutdown stops the dispatcher and waits for Run to return.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() { close(d.shutdown) })

	// Wait for dispatcher to finish or context to timeout
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) deliver(ctx context.Context, m queue.Message) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := d.sender.Send(ctx, m); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("dispatcher", "send")
		d.logger.Warn(ctx, "send failed",
			logger.String("type", m.Type),
			logger.String("session", m.Session),
			logger.Error(err),
		)
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	return nil
}
