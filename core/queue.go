package core

import (
	"context"
	"time"
)

// QueueConfig configures a RequestQueue.
type QueueConfig struct {
	MaxSize     int           `toml:"max_size"`
	MaxWaitTime time.Duration `toml:"max_wait_time"`
}

// DefaultQueueConfig returns the spec.md §6 defaults
// (ARGO_QUEUE_MAX_SIZE=1000, ARGO_QUEUE_MAX_WAIT=300s).
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{MaxSize: 1000, MaxWaitTime: 300 * time.Second}
}

// QueuedFuture is resolved once a queued request has been processed (or
// has expired). It is the future described in spec.md §4.3.
type QueuedFuture interface {
	// Wait blocks until the future resolves or ctx is cancelled.
	Wait(ctx context.Context) (Response, error)
}

// ResolvableFuture is the producer-side capability: only the component that
// dequeued a request (the Gateway's background processor) may resolve it.
// RequestQueue implementations return a value satisfying both QueuedFuture
// and ResolvableFuture from Enqueue/Dequeue; external callers only see the
// QueuedFuture half through the return type.
type ResolvableFuture interface {
	QueuedFuture
	Resolve(resp Response, err error)
}

// RequestQueue is the bounded FIFO described in spec.md §4.3, used by the
// Gateway to defer delivery while a model's breaker is OPEN.
type RequestQueue interface {
	// Enqueue returns false when the queue is full.
	Enqueue(req Request) (QueuedFuture, bool)
	// Dequeue drops expired entries and returns the next live entry, if
	// any.
	Dequeue() (Request, QueuedFuture, bool)
	Len() int
	// Clear cancels all pending futures with an error.
	Clear(err error)
}

// RequestQueueFactory constructs a RequestQueue. Registered by
// internal/reliability at init() time.
type RequestQueueFactory func(cfg QueueConfig) RequestQueue

var requestQueueFactory RequestQueueFactory

func RegisterRequestQueueFactory(f RequestQueueFactory) {
	requestQueueFactory = f
}

func NewRequestQueue(cfg QueueConfig) RequestQueue {
	if requestQueueFactory == nil {
		panic("core: no request queue factory registered (import internal/reliability)")
	}
	return requestQueueFactory(cfg)
}
