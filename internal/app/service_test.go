package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/backend"
	"github.com/okian/verdict/internal/domain/ensemble"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/outcome"
	. "github.com/smartystreets/goconvey/convey"
)

func startedService(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func labeled(id string, o outcome.Outcome) model.CaseRecord {
	return model.CaseRecord{CaseID: id, Outcome: o}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a prediction service", t, func() {
		ctx := context.Background()

		Convey("When used before Start", func() {
			svc := service.New()

			Convey("Then operations should report not-started", func() {
				_, err := svc.PredictCaseOutcome(ctx, model.CaseFeatures{}, "")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				So(errors.Is(svc.TrainModels(ctx, nil), service.ErrNotStarted), ShouldBeTrue)

				_, err = svc.Result(ctx, "case-1")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				_, _, ok := svc.EnqueueCase(ctx, "case-1", model.CaseFeatures{}, "")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When started with defaults", func() {
			svc := startedService()
			defer svc.Stop()

			Convey("Then it should serve statistical-only predictions without credentials", func() {
				combined, err := svc.PredictCaseOutcome(ctx, model.CaseFeatures{EvidenceStrength: 0.7}, "")
				So(err, ShouldBeNil)
				So(combined.TotalModels, ShouldEqual, 1)
				So(combined.ModelsUsed, ShouldEqual, 1)
				So(combined.Method, ShouldEqual, ensemble.MethodWeightedEnsemble)
				So(combined.Probabilities.Validate(), ShouldBeNil)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When an LLM backend is enabled without an API key", func() {
			svc := service.New(service.WithGemini(service.LLMSettings{Enabled: true, Weight: 0.4}))

			Convey("Then Start should fail", func() {
				So(svc.Start(ctx), ShouldNotBeNil)
			})
		})

		Convey("When stopped", func() {
			svc := startedService()
			svc.Stop()

			Convey("Then operations should report not-started again", func() {
				_, err := svc.PredictCaseOutcome(ctx, model.CaseFeatures{}, "")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stopping again should be a no-op", func() {
				So(svc.Stop, ShouldNotPanic)
			})
		})
	})
}

func TestService_Training(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService()
		defer svc.Stop()

		Convey("When training with labeled records", func() {
			err := svc.TrainModels(ctx, []model.CaseRecord{
				labeled("case-1", outcome.Settlement),
				labeled("case-2", outcome.Settlement),
				labeled("case-3", outcome.Settlement),
				labeled("case-4", outcome.PlaintiffWin),
			})

			Convey("Then records should be stored and backends trained", func() {
				So(err, ShouldBeNil)
				stats := svc.Stats(ctx)
				So(stats["trainingRecords"], ShouldEqual, 4)

				combined, err := svc.PredictCaseOutcome(ctx, model.CaseFeatures{
					EvidenceStrength:  0.5,
					JudgeFavorability: 0.5,
				}, "")
				So(err, ShouldBeNil)
				So(combined.Probabilities[outcome.Settlement], ShouldBeGreaterThan,
					combined.Probabilities[outcome.DefendantWin])
			})
		})

		Convey("When training incrementally", func() {
			So(svc.TrainModels(ctx, []model.CaseRecord{labeled("case-1", outcome.Dismissed)}), ShouldBeNil)
			So(svc.TrainModels(ctx, []model.CaseRecord{labeled("case-2", outcome.Settlement)}), ShouldBeNil)

			Convey("Then each run should retrain over the full stored history", func() {
				So(svc.Stats(ctx)["trainingRecords"], ShouldEqual, 2)
			})
		})

		Convey("When training with an empty record list", func() {
			So(svc.TrainModels(ctx, []model.CaseRecord{labeled("case-1", outcome.Settlement)}), ShouldBeNil)
			err := svc.TrainModels(ctx, nil)

			Convey("Then it should retrain from stored history without error", func() {
				So(err, ShouldBeNil)
				So(svc.Stats(ctx)["trainingRecords"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_Predict(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService()
		defer svc.Stop()

		Convey("When features are out of range", func() {
			_, err := svc.PredictCaseOutcome(ctx, model.CaseFeatures{EvidenceStrength: 1.5}, "")

			Convey("Then the request should be rejected", func() {
				So(errors.Is(err, service.ErrInvalidFeatures), ShouldBeTrue)
			})
		})

		Convey("When features are valid", func() {
			c1, err1 := svc.PredictCaseOutcome(ctx, model.CaseFeatures{EvidenceStrength: 0.6}, "")
			c2, err2 := svc.PredictCaseOutcome(ctx, model.CaseFeatures{EvidenceStrength: 0.6}, "")

			Convey("Then repeated predictions should be deterministic", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				for _, o := range outcome.All() {
					So(c1.Probabilities[o], ShouldEqual, c2.Probabilities[o])
				}
			})
		})
	})

	Convey("Given a service with injected members", t, func() {
		ctx := context.Background()
		stat := backend.NewStatistical()
		svc := startedService(service.WithMembers(
			ensemble.Member{Backend: stat, Weight: 1.0},
		))
		defer svc.Stop()

		Convey("When predicting", func() {
			combined, err := svc.PredictCaseOutcome(ctx, model.CaseFeatures{}, "")

			Convey("Then the injected member should be the whole ensemble", func() {
				So(err, ShouldBeNil)
				So(combined.TotalModels, ShouldEqual, 1)
			})
		})
	})
}

func TestService_BatchScoring(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService(service.WithWorkerCount(2), service.WithQueueSize(100))
		defer svc.Stop()

		Convey("When submitting a case", func() {
			jobID, duplicate, ok := svc.EnqueueCase(ctx, "case-1", model.CaseFeatures{EvidenceStrength: 0.8}, "")

			Convey("Then it should be accepted with a job id", func() {
				So(ok, ShouldBeTrue)
				So(duplicate, ShouldBeFalse)
				So(jobID, ShouldNotBeEmpty)
			})

			Convey("And the result should eventually be retrievable", func() {
				deadline := time.Now().Add(2 * time.Second)
				var (
					combined ensemble.Combined
					err      error
				)
				for time.Now().Before(deadline) {
					combined, err = svc.Result(ctx, "case-1")
					if err == nil {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(err, ShouldBeNil)
				So(combined.Probabilities.Validate(), ShouldBeNil)
				So(combined.Method, ShouldEqual, ensemble.MethodWeightedEnsemble)
			})

			Convey("And resubmitting the same case should report a duplicate", func() {
				_, duplicate, ok := svc.EnqueueCase(ctx, "case-1", model.CaseFeatures{}, "")
				So(ok, ShouldBeTrue)
				So(duplicate, ShouldBeTrue)
			})
		})

		Convey("When submitting distinct cases", func() {
			id1, _, _ := svc.EnqueueCase(ctx, "case-1", model.CaseFeatures{}, "")
			id2, _, _ := svc.EnqueueCase(ctx, "case-2", model.CaseFeatures{}, "")

			Convey("Then job ids should be unique", func() {
				So(id1, ShouldNotEqual, id2)
			})
		})

		Convey("When asking for a result that was never submitted", func() {
			_, err := svc.Result(ctx, "unknown-case")

			Convey("Then it should report not found", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestService_Stats(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService(service.WithWorkerCount(3))
		defer svc.Stop()

		Convey("When reading stats", func() {
			stats := svc.Stats(ctx)

			Convey("Then the wiring should be visible", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["workerCount"], ShouldEqual, 3)
				So(stats["backends"], ShouldEqual, 1)
				So(stats, ShouldContainKey, "queueLength")
				So(stats, ShouldContainKey, "trainingRecords")
			})
		})
	})
}

func TestValidateFeatures(t *testing.T) {
	Convey("Given feature validation", t, func() {
		Convey("When every score is in range", func() {
			So(service.ValidateFeatures(model.CaseFeatures{
				CaseTypeFit:      1.0,
				EvidenceStrength: 0.5,
			}), ShouldBeNil)
		})

		Convey("When a score is negative", func() {
			err := service.ValidateFeatures(model.CaseFeatures{JudgeFavorability: -0.1})
			So(errors.Is(err, service.ErrInvalidFeatures), ShouldBeTrue)
		})

		Convey("When a score exceeds one", func() {
			err := service.ValidateFeatures(model.CaseFeatures{CaseValue: 1.01})
			So(errors.Is(err, service.ErrInvalidFeatures), ShouldBeTrue)
		})
	})
}
