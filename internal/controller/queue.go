package controller

import (
	"context"
	"iter"
	"sync"
)

// Queue is an unbounded FIFO with any number of writers and a single reader.
//
// Enqueue never blocks. Once Close is called further items are refused,
// and readers finish after the items already queued have been handed out.
//
// Thread Safety: all methods are safe for concurrent use.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// signal holds at most one wake-up for a waiting reader.
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewQueue creates an empty open queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Enqueue appends v to the tail of the queue.
//
// Returns false, dropping v, if the queue has been closed.
func (q *Queue[T]) Enqueue(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting items. It is idempotent.
func (q *Queue[T]) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of items waiting.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Next removes and returns the head of the queue, blocking while the queue
// is empty and open.
//
// Returns false when the queue is closed and empty, or when ctx is done.
func (q *Queue[T]) Next(ctx context.Context) (T, bool) {
	for {
		if v, ok, closed := q.pop(); ok {
			return v, true
		} else if closed {
			return v, false
		}

		select {
		case <-q.signal:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// All returns a sequence over the queue's items in FIFO order. The sequence
// ends when the queue is closed and drained, when ctx is done, or when the
// consumer stops ranging. Each call returns an independent iterator.
func (q *Queue[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := q.Next(ctx)
			if !ok || !yield(v) {
				return
			}
		}
	}
}

func (q *Queue[T]) pop() (v T, ok, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		q.items = nil
		return v, false, q.closed
	}

	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true, q.closed
}
