// Package channel provides the unbounded queues behind agent mailboxes,
// the broker intake and per-connection write queues.
package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("channel: closed")

// Unbounded is a FIFO queue whose Push never blocks. Consumers block in Pop
// until an item arrives, the queue is closed or the context ends.
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	notify chan struct{}
	done   chan struct{}

	pushes atomic.Int64
	pops   atomic.Int64
	peak   atomic.Int64
}

// NewUnbounded creates an empty queue.
func NewUnbounded[T any]() *Unbounded[T] {
	return &Unbounded[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push appends v. It returns false if the queue is closed.
func (q *Unbounded[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	n := int64(len(q.items))
	q.mu.Unlock()

	q.pushes.Add(1)
	for {
		p := q.peak.Load()
		if n <= p || q.peak.CompareAndSwap(p, n) {
			break
		}
	}
	q.signal()
	return true
}

// Pop removes the oldest item, waiting for one if the queue is empty.
// Items queued before Close are still returned; after that Pop returns
// ErrClosed.
func (q *Unbounded[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok := q.TryPop(); ok {
			return v, nil
		}

		q.mu.Lock()
		closed := q.closed && len(q.items) == 0
		q.mu.Unlock()
		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop removes the oldest item without waiting.
func (q *Unbounded[T]) TryPop() (T, bool) {
	q.mu.Lock()
	var zero T
	if len(q.items) == 0 {
		q.mu.Unlock()
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	more := len(q.items) > 0
	q.mu.Unlock()

	q.pops.Add(1)
	if more {
		// Another consumer may be parked on notify.
		q.signal()
	}
	return v, true
}

func (q *Unbounded[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Close stops accepting items. It is safe to call more than once.
func (q *Unbounded[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Closed reports whether Close has been called.
func (q *Unbounded[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *Unbounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns queue statistics.
func (q *Unbounded[T]) Stats() UnboundedStats {
	return UnboundedStats{
		Length: q.Len(),
		Pushes: q.pushes.Load(),
		Pops:   q.pops.Load(),
		Peak:   q.peak.Load(),
	}
}

// UnboundedStats contains queue statistics.
type UnboundedStats struct {
	Length int   `json:"length"`
	Pushes int64 `json:"pushes"`
	Pops   int64 `json:"pops"`
	Peak   int64 `json:"peak"`
}
