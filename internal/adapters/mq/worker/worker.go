// Package worker drains the inbound queue into the ingest pipeline.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/okian/salesbonus/internal/domain/ingest"
	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/pkg/logger"
	"github.com/okian/salesbonus/pkg/metrics"
)

// Processor applies one message.
type Processor interface {
	Process(ctx context.Context, msg model.Message) ingest.Outcome
}

// Queue defines how workers receive messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Message
}

// Worker processes messages one at a time.
type Worker interface {
	// Run blocks until ctx is cancelled, Shutdown is called or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown waits for Run to return. When ctx expires first the loop is told to stop.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker is the single consumer of the inbound queue, so messages are applied
// strictly in arrival order.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := w.processMessage(ctx, msg); err != nil {
				w.logger.Error(ctx, "error processing message", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.shutdownOnce.Do(func() { close(w.shutdown) })
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// processMessage applies msg; a panic is turned into an error so the next message still runs.
func (w *InMemoryWorker) processMessage(ctx context.Context, msg model.Message) (err error) { //nolint:gocritic // value semantics for channel receive
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerPanic()
			w.logger.Error(ctx, "panic while processing message",
				logger.String("message_id", msg.ID),
				logger.String("stack", string(debug.Stack())))
			err = fmt.Errorf("message %s: panic: %v", msg.ID, r)
		}
	}()

	outcome := w.processor.Process(ctx, msg)
	w.logger.Debug(ctx, "message processed",
		logger.String("message_id", msg.ID),
		logger.String("outcome", outcome.String()))
	return nil
}
