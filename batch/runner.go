package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chrisdreid/chronosynth/engine"
	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/formats"
	"github.com/chrisdreid/chronosynth/metric"
	"github.com/chrisdreid/chronosynth/pkg/worker"
	"github.com/chrisdreid/chronosynth/series"
)

// stopTimeout bounds the drain wait when the batch shuts down.
const stopTimeout = 10 * time.Minute

// Sink receives completed datasets, for publishers that push results
// somewhere other than (or in addition to) the job's output file.
type Sink interface {
	Publish(ctx context.Context, job string, s *series.Series) error
}

// Result records the outcome of one batch job.
type Result struct {
	// ID is assigned when the job starts.
	ID   uuid.UUID
	Name string
	// Output is the file the dataset was written to, if any.
	Output   string
	Duration time.Duration
	Err      error
}

// Runner executes batch specs on a worker pool, one generator run per job.
type Runner struct {
	gen      *engine.Generator
	logger   *slog.Logger
	registry *metric.Registry
	metrics  *metric.Metrics
	sink     Sink
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink attaches a dataset sink invoked after each successful job.
func WithSink(sink Sink) Option {
	return func(r *Runner) { r.sink = sink }
}

// WithMetricsRegistry enables batch and worker-pool metrics.
func WithMetricsRegistry(registry *metric.Registry) Option {
	return func(r *Runner) {
		r.registry = registry
		if registry != nil {
			r.metrics = registry.CoreMetrics()
		}
	}
}

// NewRunner creates a batch runner. logger may be nil.
func NewRunner(gen *engine.Generator, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{gen: gen, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// task pairs a job with its slot in the results slice so workers can
// write outcomes without coordination.
type task struct {
	job    Job
	result *Result
}

// Run executes every job in the spec and returns per-job results in spec
// order. Job failures are recorded in their Result; Run itself returns an
// error only for batch-level problems, or for the first job failure when
// the spec sets stop_on_error.
func (r *Runner) Run(ctx context.Context, spec *Spec) ([]Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	spec.deriveSeeds()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(spec.Jobs))
	for i := range spec.Jobs {
		results[i] = Result{Name: spec.Jobs[i].Name}
	}

	process := func(ctx context.Context, t task) error {
		err := r.runJob(ctx, t)
		if err != nil && spec.StopOnError {
			cancel()
		}
		return err
	}

	var poolOpts []worker.Option[task]
	if r.registry != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[task](r.registry, "batch"))
	}
	pool := worker.NewPool(spec.Concurrency, len(spec.Jobs), process, poolOpts...)
	if err := pool.Start(runCtx); err != nil {
		return nil, errors.WrapInternal(err, "Runner", "Run", "start worker pool")
	}

	for i := range spec.Jobs {
		if err := pool.Submit(task{job: spec.Jobs[i], result: &results[i]}); err != nil {
			// queue is sized to the job count, so this only happens
			// after Stop or a lifecycle bug
			results[i].Err = err
		}
	}
	if err := pool.Stop(stopTimeout); err != nil {
		return results, errors.WrapInternal(err, "Runner", "Run", "drain worker pool")
	}

	stats := pool.Stats()
	r.logger.Info("batch complete",
		"jobs", len(spec.Jobs),
		"processed", stats.Processed,
		"failed", stats.Failed)

	if spec.StopOnError {
		for i := range results {
			if results[i].Err != nil {
				return results, results[i].Err
			}
		}
	}
	return results, nil
}

// runJob generates one dataset, saves it when the job names an output
// file, and forwards it to the sink.
func (r *Runner) runJob(ctx context.Context, t task) error {
	t.result.ID = uuid.New()
	start := time.Now()
	if r.metrics != nil {
		r.metrics.BatchJobStarted()
	}
	defer func() {
		t.result.Duration = time.Since(start)
		if r.metrics != nil {
			r.metrics.BatchJobFinished(t.result.Duration)
		}
	}()

	log := r.logger.With("job", t.job.Name, "id", t.result.ID)

	res, err := r.gen.Generate(ctx, t.job.Params)
	if err != nil {
		log.Error("job failed", "error", err)
		t.result.Err = err
		return err
	}

	if t.job.Output != "" {
		var doc any
		if t.job.Layout == LayoutRaw {
			doc = formats.RawFromSeries(res.Series)
		} else {
			doc = formats.FromSeries(res.Series)
		}
		if err := formats.Save(t.job.Output, doc); err != nil {
			log.Error("save failed", "output", t.job.Output, "error", err)
			t.result.Err = err
			return err
		}
		t.result.Output = t.job.Output
	}

	if r.sink != nil {
		if err := r.sink.Publish(ctx, t.job.Name, res.Series); err != nil {
			log.Error("publish failed", "error", err)
			t.result.Err = err
			return err
		}
	}

	log.Debug("job complete", "samples", res.Series.Len(), "duration", time.Since(start))
	return nil
}
