package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/verdict/internal/adapters/mq/queue"
	"github.com/okian/verdict/internal/adapters/mq/worker"
	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/ensemble"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/outcome"
	. "github.com/smartystreets/goconvey/convey"
)

// stubPredictor returns a canned result and counts invocations.
type stubPredictor struct {
	mu     sync.Mutex
	result ensemble.Combined
	calls  int
}

func (s *stubPredictor) Predict(_ context.Context, _ model.CaseFeatures, _ string) ensemble.Combined {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result
}

func (s *stubPredictor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// failingSink always rejects saves.
type failingSink struct{}

func (failingSink) SaveResult(context.Context, string, ensemble.Combined) error {
	return errors.New("sink unavailable")
}

func canned() ensemble.Combined {
	return ensemble.Combined{
		Probabilities: outcome.Distribution{
			outcome.PlaintiffWin: 0.4,
			outcome.DefendantWin: 0.3,
			outcome.Settlement:   0.2,
			outcome.Dismissed:    0.1,
		},
		Confidence:  0.7,
		ModelsUsed:  1,
		TotalModels: 1,
		Method:      ensemble.MethodWeightedEnsemble,
	}
}

func TestWorker_Run(t *testing.T) {
	Convey("Given a worker over a queue, predictor, and store", t, func() {
		ctx := context.Background()

		Convey("When jobs are buffered and the queue closes", func() {
			q := queue.NewInMemory(queue.WithCapacity(10))
			predictor := &stubPredictor{result: canned()}
			store := repository.NewMemoryStore()

			So(q.Enqueue(ctx, queue.Job{JobID: "job-1", CaseID: "case-1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{JobID: "job-2", CaseID: "case-2"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			w := worker.New(q, predictor, store)
			w.Run(ctx) // drains the buffer, then the closed channel ends the loop

			Convey("Then every job should be scored and persisted", func() {
				So(predictor.callCount(), ShouldEqual, 2)

				got, err := store.Result(ctx, "case-1")
				So(err, ShouldBeNil)
				So(got.Confidence, ShouldEqual, 0.7)
				So(got.Method, ShouldEqual, ensemble.MethodWeightedEnsemble)

				_, err = store.Result(ctx, "case-2")
				So(err, ShouldBeNil)
			})
		})

		Convey("When persistence fails", func() {
			q := queue.NewInMemory(queue.WithCapacity(10))
			predictor := &stubPredictor{result: canned()}

			So(q.Enqueue(ctx, queue.Job{JobID: "job-1", CaseID: "case-1"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			w := worker.New(q, predictor, failingSink{})

			Convey("Then the worker should log and keep going, not panic", func() {
				So(func() { w.Run(ctx) }, ShouldNotPanic)
				So(predictor.callCount(), ShouldEqual, 1)
			})
		})

		Convey("When the context is cancelled", func() {
			q := queue.NewInMemory(queue.WithCapacity(10))
			predictor := &stubPredictor{result: canned()}
			store := repository.NewMemoryStore()

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			w := worker.New(q, predictor, store)
			done := make(chan struct{})
			go func() {
				w.Run(cancelled)
				close(done)
			}()

			Convey("Then the worker should stop promptly", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					So("worker did not stop", ShouldBeEmpty)
				}
			})
		})

		Convey("When shutdown is requested", func() {
			q := queue.NewInMemory(queue.WithCapacity(10))
			predictor := &stubPredictor{result: canned()}
			store := repository.NewMemoryStore()

			w := worker.New(q, predictor, store, worker.WithName("worker-test"))
			go w.Run(ctx)

			Convey("Then Shutdown should return once the loop exits", func() {
				sctx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()
				So(w.Shutdown(sctx), ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		ctx := context.Background()
		q := queue.NewInMemory(queue.WithCapacity(100))
		predictor := &stubPredictor{result: canned()}
		store := repository.NewMemoryStore()

		Convey("When started with several workers", func() {
			pool := worker.NewPool(4, q, predictor, store)
			pool.Start(ctx)

			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, queue.Job{
					JobID:  "job-" + string(rune('a'+i)),
					CaseID: "case-" + string(rune('a'+i)),
				}), ShouldBeTrue)
			}

			Convey("Then every job should eventually be persisted", func() {
				saved := func() int {
					n := 0
					for i := 0; i < 20; i++ {
						if _, err := store.Result(ctx, "case-"+string(rune('a'+i))); err == nil {
							n++
						}
					}
					return n
				}
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) && saved() < 20 {
					time.Sleep(5 * time.Millisecond)
				}
				So(saved(), ShouldEqual, 20)
				So(predictor.callCount(), ShouldEqual, 20)

				pool.Stop()
			})
		})

		Convey("When created with a non-positive worker count", func() {
			pool := worker.NewPool(0, q, predictor, store)

			Convey("Then it should still run at least one worker", func() {
				pool.Start(ctx)
				So(q.Enqueue(ctx, queue.Job{JobID: "job-x", CaseID: "case-x"}), ShouldBeTrue)

				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) {
					if predictor.callCount() > 0 {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(predictor.callCount(), ShouldBeGreaterThan, 0)
				pool.Stop()
			})
		})
	})
}
