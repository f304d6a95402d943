package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vmops/snapfleet/internal/models"
	"github.com/vmops/snapfleet/pkg/scheduler"
)

var _ = Describe("Scheduler", func() {
	It("should deliver each work function's result on its future", func() {
		s := scheduler.NewScheduler(2)
		defer s.Close()

		ok := s.AddWork(func(ctx context.Context) (any, error) {
			return 42, nil
		})
		failed := s.AddWork(func(ctx context.Context) (any, error) {
			return nil, errors.New("boom")
		})

		Eventually(ok.C(), time.Second).Should(Receive(Equal(models.Result[any]{Data: 42})))

		var result models.Result[any]
		Eventually(failed.C(), time.Second).Should(Receive(&result))
		Expect(result.Err).To(MatchError("boom"))
	})

	It("should never run more work than it has workers", func() {
		s := scheduler.NewScheduler(2)
		defer s.Close()

		var mu sync.Mutex
		running, peak := 0, 0

		futures := make([]*models.Future[models.Result[any]], 0, 6)
		for range 6 {
			futures = append(futures, s.AddWork(func(ctx context.Context) (any, error) {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil, nil
			}))
		}
		for _, f := range futures {
			Eventually(f.C(), time.Second).Should(Receive())
		}

		Expect(peak).To(BeNumerically("<=", 2))
	})

	It("should drain queued work in submission order", func() {
		s := scheduler.NewScheduler(1)
		defer s.Close()

		var mu sync.Mutex
		var order []int

		futures := make([]*models.Future[models.Result[any]], 0, 4)
		for i := range 4 {
			i := i
			futures = append(futures, s.AddWork(func(ctx context.Context) (any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			}))
		}
		for _, f := range futures {
			Eventually(f.C(), time.Second).Should(Receive())
		}

		Expect(order).To(Equal([]int{0, 1, 2, 3}))
	})

	// Given a worker still running its function
	// When the scheduler is closed
	// Then Close returns only after the worker has finished
	It("should wait for running workers on Close", func() {
		s := scheduler.NewScheduler(1)

		started := make(chan struct{})
		var finished atomic.Bool
		s.AddWork(func(ctx context.Context) (any, error) {
			close(started)
			<-ctx.Done()
			finished.Store(true)
			return nil, ctx.Err()
		})

		Eventually(started, time.Second).Should(BeClosed())
		s.Close()

		Expect(finished.Load()).To(BeTrue())
	})
})
