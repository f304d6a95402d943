package scheduler

import (
	"context"

	"github.com/vmops/snapfleet/internal/models"
)

type workRequest struct {
	fn  models.Work[any]
	c   chan models.Result[any]
	ctx context.Context
}

type worker struct {
	done chan any
}

func (w worker) Work(r workRequest) {
	v, err := r.fn(r.ctx)
	r.c <- models.Result[any]{Data: v, Err: err}
	w.done <- struct{}{}
}

func newWorker(done chan any) worker {
	return worker{done: done}
}

// Scheduler is a bounded worker pool. At most nbWorkers work functions
// run concurrently; everything else waits in a queue. Each bulk run
// gets its own scheduler, torn down when the run finishes.
type Scheduler struct {
	workers    *models.Queue[worker]
	workQueue  *models.Queue[workRequest]
	close      chan any
	closed     chan any
	done       chan any
	work       chan workRequest
	mainCtx    context.Context
	mainCancel context.CancelFunc
}

func NewScheduler(nbWorkers int) *Scheduler {
	done := make(chan any)
	wq := &models.Queue[worker]{}
	for range nbWorkers {
		wq.Push(newWorker(done))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		workers:    wq,
		workQueue:  &models.Queue[workRequest]{},
		close:      make(chan any),
		closed:     make(chan any),
		done:       done,
		work:       make(chan workRequest),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	go s.run()
	return s
}

// AddWork queues a work function and returns its future. The result
// channel is buffered so a worker never blocks on an abandoned future.
func (s *Scheduler) AddWork(w models.Work[any]) *models.Future[models.Result[any]] {
	c := make(chan models.Result[any], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)
	s.work <- workRequest{w, c, ctx}
	return models.NewFuture(c, cancel)
}

// Close cancels the context of every queued and running work function,
// waits for the running workers to finish, and stops the dispatch loop.
func (s *Scheduler) Close() {
	s.mainCancel()
	s.close <- struct{}{}
	<-s.closed
}

func (s *Scheduler) run() {
	busy := 0
	for {
		select {
		case w := <-s.work:
			s.workQueue.Push(w)
			if s.workers.Len() == 0 {
				continue
			}
			s.dispatch(s.workQueue.Pop())
			busy++
		case <-s.done:
			busy--
			s.workers.Push(newWorker(s.done))

			if s.workQueue.Len() == 0 {
				continue
			}
			s.dispatch(s.workQueue.Pop())
			busy++
		case <-s.close:
			for busy > 0 {
				<-s.done
				busy--
			}
			close(s.closed)
			return
		}
	}
}

func (s *Scheduler) dispatch(r workRequest) {
	worker := s.workers.Pop()
	go worker.Work(r)
}
