package models

import "context"

// Future is the handle returned when work is handed to the scheduler.
// The result arrives exactly once on C; Stop cancels the work's context
// without waiting for it.
type Future[T any] struct {
	c      chan T
	cancel context.CancelFunc
}

func NewFuture[T any](c chan T, cancel context.CancelFunc) *Future[T] {
	return &Future[T]{c: c, cancel: cancel}
}

func (f *Future[T]) C() <-chan T {
	return f.c
}

func (f *Future[T]) Stop() {
	f.cancel()
}
