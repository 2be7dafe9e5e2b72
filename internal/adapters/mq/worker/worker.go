// Package worker consumes queued batch-scoring jobs, runs the ensemble, and
// persists results.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/verdict/internal/domain/ensemble"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Shutdown bounds.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Predictor produces one combined prediction per job. The ensemble satisfies
// this; tests substitute a stub.
type Predictor interface {
	Predict(ctx context.Context, features model.CaseFeatures, narrative string) ensemble.Combined
}

// ResultSink persists completed job results.
type ResultSink interface {
	SaveResult(ctx context.Context, caseID string, result ensemble.Combined) error
}

// Queue is the consumption side workers read from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.CaseJob
}

// Worker processes jobs until its queue closes or the context ends.
type Worker struct {
	queue     Queue
	predictor Predictor
	sink      ResultSink
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
			w.logger = logger.Get().Named(name)
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a worker with configuration options.
func New(queue Queue, predictor Predictor, sink ResultSink, opts ...Option) *Worker {
	w := &Worker{
		queue:     queue,
		predictor: predictor,
		sink:      sink,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes jobs until the context ends, shutdown is signaled, or the
// queue channel closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "job failed", logger.String("jobID", job.JobID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker, waiting up to the shutdown timeout.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// process scores one job and persists the result. The predictor absorbs
// backend failures internally, so the only error path here is persistence.
func (w *Worker) process(ctx context.Context, job model.CaseJob) error {
	start := time.Now()
	defer func() {
		metrics.RecordJobLatency(float64(time.Since(start).Milliseconds()))
	}()

	combined := w.predictor.Predict(ctx, job.Features, job.Narrative)

	if err := w.sink.SaveResult(ctx, job.CaseID, combined); err != nil {
		return fmt.Errorf("save result for case %s: %w", job.CaseID, err)
	}

	metrics.RecordJobProcessed()
	w.logger.Debug(ctx, "job scored",
		logger.String("caseID", job.CaseID),
		logger.Int("modelsUsed", combined.ModelsUsed),
		logger.Float64("confidence", combined.Confidence),
	)
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
}

// NewPool creates workerCount workers sharing queue, predictor, and sink.
func NewPool(workerCount int, queue Queue, predictor Predictor, sink ResultSink) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{workers: make([]*Worker, workerCount)}
	for i := range p.workers {
		p.workers[i] = New(queue, predictor, sink, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop shuts the pool down, bounding the total wait.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()
	for _, w := range p.workers {
		wctx, wcancel := context.WithTimeout(ctx, workerShutdownTimeout)
		_ = w.Shutdown(wctx)
		wcancel()
	}
}
