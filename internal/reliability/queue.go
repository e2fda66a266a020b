package reliability

import (
	"context"
	"sync"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterRequestQueueFactory(newRequestQueue)
}

// future resolves exactly once, either with a delivered Response or with an
// error (including expiry), per spec.md §4.3.
type future struct {
	done chan struct{}
	once sync.Once
	resp core.Response
	err  error
}

func newFuture() *future {
	return &future{done: make(chan struct{})}
}

func (f *future) Resolve(resp core.Response, err error) {
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
	})
}

func (f *future) Wait(ctx context.Context) (core.Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return core.Response{}, ctx.Err()
	}
}

type entry struct {
	req      core.Request
	future   *future
	enqueued time.Time
}

// requestQueue is a bounded FIFO with per-entry TTL, used by the Gateway to
// defer delivery while a model's breaker is OPEN.
type requestQueue struct {
	mu      sync.Mutex
	cfg     core.QueueConfig
	entries []entry
}

func newRequestQueue(cfg core.QueueConfig) core.RequestQueue {
	return &requestQueue{cfg: cfg}
}

func (q *requestQueue) Enqueue(req core.Request) (core.QueuedFuture, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.cfg.MaxSize {
		return nil, false
	}
	f := newFuture()
	q.entries = append(q.entries, entry{req: req, future: f, enqueued: time.Now()})
	return f, true
}

// Dequeue drops expired entries from the head before returning the next
// live one, per spec.md §4.3.
func (q *requestQueue) Dequeue() (core.Request, core.QueuedFuture, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.entries) > 0 {
		head := q.entries[0]
		q.entries = q.entries[1:]
		if time.Since(head.enqueued) > q.cfg.MaxWaitTime {
			head.future.Resolve(core.Response{}, core.NewGatewayError(core.ErrorCodeTimeout, "queued request expired"))
			continue
		}
		return head.req, head.future, true
	}
	return core.Request{}, nil, false
}

func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *requestQueue) Clear(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		e.future.Resolve(core.Response{}, err)
	}
	q.entries = nil
}
