package queue_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/okian/verdict/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory job queue", t, func() {
		ctx := context.Background()

		Convey("When enqueueing within capacity", func() {
			q := queue.NewInMemory(queue.WithCapacity(10))
			ok := q.Enqueue(ctx, queue.Job{JobID: "job-1", CaseID: "case-1"})

			Convey("Then the job should be accepted and buffered", func() {
				So(ok, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 1)
			})

			Convey("And it should come back out in order", func() {
				So(q.Enqueue(ctx, queue.Job{JobID: "job-2", CaseID: "case-2"}), ShouldBeTrue)
				jobs := q.Dequeue(ctx)
				first := <-jobs
				second := <-jobs
				So(first.JobID, ShouldEqual, "job-1")
				So(second.JobID, ShouldEqual, "job-2")
			})
		})

		Convey("When the buffer is full", func() {
			q := queue.NewInMemory(queue.WithCapacity(2))
			So(q.Enqueue(ctx, queue.Job{JobID: "job-1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{JobID: "job-2"}), ShouldBeTrue)

			Convey("Then further enqueues should be rejected, not blocked", func() {
				So(q.Enqueue(ctx, queue.Job{JobID: "job-3"}), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And draining should free capacity", func() {
				<-q.Dequeue(ctx)
				So(q.Enqueue(ctx, queue.Job{JobID: "job-3"}), ShouldBeTrue)
			})
		})

		Convey("When the queue is closed", func() {
			q := queue.NewInMemory(queue.WithCapacity(2))
			So(q.Enqueue(ctx, queue.Job{JobID: "job-1"}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues should fail", func() {
				So(q.Enqueue(ctx, queue.Job{JobID: "job-2"}), ShouldBeFalse)
			})

			Convey("And buffered jobs should drain before the channel closes", func() {
				jobs := q.Dequeue(ctx)
				job, ok := <-jobs
				So(ok, ShouldBeTrue)
				So(job.JobID, ShouldEqual, "job-1")
				_, ok = <-jobs
				So(ok, ShouldBeFalse)
			})

			Convey("And closing again should be a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When many jobs flow through", func() {
			q := queue.NewInMemory(queue.WithCapacity(100))
			for i := 0; i < 100; i++ {
				So(q.Enqueue(ctx, queue.Job{JobID: fmt.Sprintf("job-%d", i)}), ShouldBeTrue)
			}
			So(q.Len(ctx), ShouldEqual, 100)

			Convey("Then every job should be delivered exactly once", func() {
				So(q.Close(), ShouldBeNil)
				seen := make(map[string]bool)
				for job := range q.Dequeue(ctx) {
					So(seen[job.JobID], ShouldBeFalse)
					seen[job.JobID] = true
				}
				So(len(seen), ShouldEqual, 100)
			})
		})
	})
}
