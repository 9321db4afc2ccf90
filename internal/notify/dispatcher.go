package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/observability"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

// Dispatcher owns a bounded in-process queue of outbound notifications and a
// pool of workers draining it. Callers enqueue and move on; delivery,
// retries, and failure accounting happen off the request path. Messages that
// exhaust their retries land in an in-memory dead-letter list so an operator
// can inspect what was lost.
type Dispatcher struct {
	queue      chan Message
	sender     Sender
	logger     *slog.Logger
	workers    int
	maxRetries int
	backoff    time.Duration

	group  *errgroup.Group
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	dead   []Message
}

func NewDispatcher(cfg *config.Config, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:      make(chan Message, cfg.NotifyQueueSize),
		sender:     sender,
		logger:     logger,
		workers:    cfg.NotifyWorkers,
		maxRetries: cfg.NotifyMaxRetries,
		backoff:    cfg.NotifyRetryBackoff,
	}
}

// Start launches the worker pool. Workers run until Close is called and the
// queue is drained, or until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		d.group.Go(func() error {
			d.work(ctx)
			return nil
		})
	}
	d.logger.Info("notification dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// Enqueue hands a message to the pool without blocking. A full queue is the
// caller's signal to degrade, not to stall the request. The send happens
// under the same lock Close takes before closing the channel; the buffered
// send never blocks, so holding the mutex here is safe.
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
		observability.RecordNotifyQueueDepth(context.Background(), 1)
		return nil
	default:
		observability.RecordNotifyDelivery(context.Background(), msg.Kind, "queue_full")
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for the workers to drain what is
// already queued, up to ctx's deadline.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = d.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

// DeadLetters returns a snapshot of messages that exhausted their retries.
func (d *Dispatcher) DeadLetters() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.dead))
	copy(out, d.dead)
	return out
}

func (d *Dispatcher) work(ctx context.Context) {
	for msg := range d.queue {
		observability.RecordNotifyQueueDepth(ctx, -1)
		d.deliver(ctx, msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	for {
		msg.Attempts++
		start := time.Now()
		err := d.sender.Send(ctx, msg)
		observability.RecordNotifyDeliveryDuration(ctx, msg.Kind, time.Since(start))
		if err == nil {
			observability.RecordNotifyDelivery(ctx, msg.Kind, "success")
			return
		}

		if msg.Attempts > d.maxRetries || ctx.Err() != nil {
			observability.RecordNotifyDelivery(ctx, msg.Kind, "dead_letter")
			d.logger.ErrorContext(ctx, "notification dead-lettered",
				"message_id", msg.ID,
				"kind", msg.Kind,
				"to", msg.To,
				"attempts", msg.Attempts,
				"error", err,
			)
			d.mu.Lock()
			d.dead = append(d.dead, msg)
			d.mu.Unlock()
			return
		}

		observability.RecordNotifyDelivery(ctx, msg.Kind, "retry")
		d.logger.WarnContext(ctx, "notification delivery failed, retrying",
			"message_id", msg.ID,
			"kind", msg.Kind,
			"attempt", msg.Attempts,
			"error", err,
		)
		select {
		case <-time.After(d.backoff * time.Duration(msg.Attempts)):
		case <-ctx.Done():
		}
	}
}
