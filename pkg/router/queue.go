package router

import (
	"context"
	"sync"

	"github.com/surrealkit/surrealdb.go/pkg/constants"
)

type envelope struct {
	cmd Command
	id  uint64
	ch  chan response
}

// queue is the FIFO between callers and the processing loop.
type queue interface {
	push(ctx context.Context, e envelope) error
	// pop blocks until an envelope is available. It returns false once the
	// queue is closed and drained.
	pop() (envelope, bool)
	close()
}

func newQueue(capacity int) queue {
	if capacity == 0 {
		return newUnboundedQueue()
	}
	return &boundedQueue{
		ch:      make(chan envelope, capacity),
		closing: make(chan struct{}),
	}
}

// boundedQueue blocks producers while capacity envelopes are waiting.
type boundedQueue struct {
	mu      sync.RWMutex
	ch      chan envelope
	closing chan struct{}
	once    sync.Once
}

func (q *boundedQueue) push(ctx context.Context, e envelope) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	select {
	case <-q.closing:
		return constants.ErrConnectionClosed
	default:
	}

	select {
	case q.ch <- e:
		return nil
	case <-q.closing:
		return constants.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *boundedQueue) pop() (envelope, bool) {
	e, ok := <-q.ch
	return e, ok
}

func (q *boundedQueue) close() {
	q.once.Do(func() {
		close(q.closing)
		// Wait for producers that are mid-push before closing the channel.
		q.mu.Lock()
		close(q.ch)
		q.mu.Unlock()
	})
}

// unboundedQueue never blocks producers.
type unboundedQueue struct {
	mu     sync.Mutex
	items  []envelope
	closed bool
	signal chan struct{}
}

func newUnboundedQueue() *unboundedQueue {
	return &unboundedQueue{signal: make(chan struct{}, 1)}
}

func (q *unboundedQueue) push(_ context.Context, e envelope) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return constants.ErrConnectionClosed
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	q.wake()
	return nil
}

func (q *unboundedQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *unboundedQueue) pop() (envelope, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items[0] = envelope{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, true
		}
		if q.closed {
			q.mu.Unlock()
			return envelope{}, false
		}
		q.mu.Unlock()
		<-q.signal
	}
}

func (q *unboundedQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}
