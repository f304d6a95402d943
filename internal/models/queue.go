package models

import "context"

// Work is a unit of deferred work executed by the scheduler.
type Work[T any] func(ctx context.Context) (T, error)

// Result pairs a work return value with its error.
type Result[T any] struct {
	Data T
	Err  error
}

// Queue backs the scheduler's idle-worker and waiting-work lists.
// Not safe for concurrent use; the scheduler serializes access in its
// run loop.
type Queue[T any] []T

func (q *Queue[T]) Len() int { return len(*q) }

func (q *Queue[T]) Push(t T) {
	*q = append(*q, t)
}

// Pop removes and returns the oldest element. FIFO order keeps queued
// work dispatching in submission order once the worker cap saturates.
func (q *Queue[T]) Pop() T {
	old := *q
	x := old[0]
	*q = old[1:]
	return x
}
