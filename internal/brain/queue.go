package brain

import "sync"

// Queue is a bounded FIFO that rejects the newest item when full.
// Any number of goroutines may push; it is meant to have one consumer.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	cap   int
}

// NewQueue creates a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make([]T, 0, capacity), cap: capacity}
}

// Push appends v, reporting false (and discarding v) if the queue is full.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.cap {
		return false
	}
	q.items = append(q.items, v)
	return true
}

// Pop removes the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue's capacity.
func (q *Queue[T]) Cap() int {
	return q.cap
}
