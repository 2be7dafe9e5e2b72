package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/verdict/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeenSet(t *testing.T) {
	Convey("Given a new seen-set", t, func() {
		ctx := context.Background()

		Convey("When created with defaults", func() {
			d := dedupe.New()

			Convey("Then it should start empty", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording case ids", func() {
			d := dedupe.New()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, "case-1")

				Convey("Then it should not be seen and should be recorded", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already recorded", func() {
				d.SeenAndRecord(ctx, "case-1")
				seen := d.SeenAndRecord(ctx, "case-1")

				Convey("Then it should be reported as seen", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And several ids are recorded", func() {
				ids := []string{"case-1", "case-2", "case-3"}
				for _, id := range ids {
					So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
				}

				Convey("Then all of them should be tracked", func() {
					So(d.Size(), ShouldEqual, len(ids))
					for _, id := range ids {
						So(d.SeenAndRecord(ctx, id), ShouldBeTrue)
					}
				})
			})
		})

		Convey("When unrecording", func() {
			d := dedupe.New()

			Convey("And the id exists", func() {
				d.SeenAndRecord(ctx, "case-1")
				d.Unrecord(ctx, "case-1")

				Convey("Then it can be submitted again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "case-1"), ShouldBeFalse)
				})
			})

			Convey("And the id does not exist", func() {
				d.Unrecord(ctx, "missing")

				Convey("Then nothing should change", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When the bound is reached", func() {
			d := dedupe.New(dedupe.WithMaxSize(3))
			for _, id := range []string{"case-1", "case-2", "case-3"} {
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			}

			Convey("And one more id arrives", func() {
				So(d.SeenAndRecord(ctx, "case-4"), ShouldBeFalse)

				Convey("Then the oldest id should have been evicted", func() {
					So(d.Size(), ShouldEqual, 3)
					So(d.SeenAndRecord(ctx, "case-1"), ShouldBeFalse) // evicted, re-recorded
					So(d.Size(), ShouldEqual, 3)
				})
			})
		})

		Convey("When an evicted slot was already unrecorded", func() {
			d := dedupe.New(dedupe.WithMaxSize(2))
			d.SeenAndRecord(ctx, "case-1")
			d.SeenAndRecord(ctx, "case-2")
			d.Unrecord(ctx, "case-1")
			d.SeenAndRecord(ctx, "case-3") // fills the freed slot
			d.SeenAndRecord(ctx, "case-4") // forces eviction past the stale case-1 slot

			Convey("Then eviction should skip the stale slot and drop the oldest live id", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "case-2"), ShouldBeFalse) // evicted
			})
		})

		Convey("When unbounded", func() {
			d := dedupe.New(dedupe.WithMaxSize(0))
			const n = 1000
			for i := 0; i < n; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("case-%d", i)), ShouldBeFalse)
			}

			Convey("Then nothing should be evicted", func() {
				So(d.Size(), ShouldEqual, n)
			})
		})
	})
}

func TestSeenSet_Concurrency(t *testing.T) {
	Convey("Given concurrent submitters", t, func() {
		ctx := context.Background()
		d := dedupe.New(dedupe.WithMaxSize(10_000))
		const goroutines = 10
		const perGoroutine = 100

		Convey("When recording from multiple goroutines", func() {
			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < perGoroutine; i++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("case-%d-%d", g, i))
					}
				}(g)
			}
			wg.Wait()

			Convey("Then every distinct id should be tracked exactly once", func() {
				So(d.Size(), ShouldEqual, goroutines*perGoroutine)
			})
		})

		Convey("When the same id races across goroutines", func() {
			firsts := make(chan bool, goroutines)
			var wg sync.WaitGroup
			for g := 0; g < goroutines; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					firsts <- !d.SeenAndRecord(ctx, "contested")
				}()
			}
			wg.Wait()
			close(firsts)

			Convey("Then exactly one submitter should win", func() {
				wins := 0
				for first := range firsts {
					if first {
						wins++
					}
				}
				So(wins, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
