package reliability

import (
	"context"
	"testing"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func TestQueueEnqueueDequeueFIFO(t *testing.T) {
	q := newRequestQueue(core.QueueConfig{MaxSize: 2, MaxWaitTime: time.Second})

	f1, ok := q.Enqueue(core.Request{RequestID: "1"})
	if !ok {
		t.Fatal("expected enqueue to succeed")
	}
	_, ok = q.Enqueue(core.Request{RequestID: "2"})
	if !ok {
		t.Fatal("expected enqueue to succeed")
	}
	_, ok = q.Enqueue(core.Request{RequestID: "3"})
	if ok {
		t.Fatal("expected enqueue to fail when queue is full")
	}

	req, future, ok := q.Dequeue()
	if !ok || req.RequestID != "1" {
		t.Fatalf("expected FIFO order, got %+v", req)
	}
	if future != f1 {
		t.Fatal("expected the original future back")
	}
}

func TestQueueExpiresStaleEntries(t *testing.T) {
	q := newRequestQueue(core.QueueConfig{MaxSize: 10, MaxWaitTime: 10 * time.Millisecond})

	future, _ := q.Enqueue(core.Request{RequestID: "stale"})
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(core.Request{RequestID: "fresh"})

	req, _, ok := q.Dequeue()
	if !ok || req.RequestID != "fresh" {
		t.Fatalf("expected stale entry dropped, got %+v ok=%v", req, ok)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := future.Wait(ctx)
	if err == nil {
		t.Fatal("expected the stale future to resolve with an error")
	}
}

func TestQueueClearResolvesAllFutures(t *testing.T) {
	q := newRequestQueue(core.QueueConfig{MaxSize: 10, MaxWaitTime: time.Minute})
	f1, _ := q.Enqueue(core.Request{RequestID: "1"})
	f2, _ := q.Enqueue(core.Request{RequestID: "2"})

	q.Clear(core.NewGatewayError(core.ErrorCodeUnknown, "shutting down"))

	ctx := context.Background()
	if _, err := f1.Wait(ctx); err == nil {
		t.Fatal("expected f1 to resolve with an error")
	}
	if _, err := f2.Wait(ctx); err == nil {
		t.Fatal("expected f2 to resolve with an error")
	}
	if q.Len() != 0 {
		t.Fatalf("expected queue empty after Clear, got len %d", q.Len())
	}
}
