package batch

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdreid/chronosynth/engine"
	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
	"github.com/chrisdreid/chronosynth/formats"
	"github.com/chrisdreid/chronosynth/metric"
	"github.com/chrisdreid/chronosynth/series"
)

func testRegistry(t *testing.T, noise float64) *field.Registry {
	t.Helper()
	r := field.NewRegistry()
	require.NoError(t, r.Add(field.Spec{Name: "gpu", Shorthand: "g", Min: 0, Max: 100, NoiseAmount: noise}))
	require.NoError(t, r.Add(field.Spec{Name: "cpu", Shorthand: "c", Min: 0, Max: 100, NoiseAmount: noise}))
	return r
}

func testRunner(t *testing.T, noise float64, opts ...Option) *Runner {
	t.Helper()
	gen := engine.NewGenerator(testRegistry(t, noise), nil, nil)
	return NewRunner(gen, nil, opts...)
}

func jobParams(keyframes ...string) engine.Params {
	return engine.Params{
		Total:     10,
		Interval:  1,
		Start:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Keyframes: keyframes,
	}
}

func TestLoadSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 42
jobs:
  - name: ramp
    params:
      total: 10
      interval: 1
      keyframes: ["g100@10s"]
    output: ramp.json
  - name: spike
    layout: raw
    params:
      total: 20
      interval: 0.5
      keyframes: ["c90@10s^"]
`), 0o600))

	spec, err := LoadSpec(path)
	require.NoError(t, err)

	assert.Equal(t, 4, spec.Concurrency) // default
	require.NotNil(t, spec.Seed)
	assert.Equal(t, int64(42), *spec.Seed)
	require.Len(t, spec.Jobs, 2)
	assert.Equal(t, "ramp", spec.Jobs[0].Name)
	assert.Equal(t, LayoutStructured, spec.Jobs[0].Layout)
	assert.Equal(t, LayoutRaw, spec.Jobs[1].Layout)
	assert.Equal(t, []string{"c90@10s^"}, spec.Jobs[1].Params.Keyframes)
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{
			name: "no jobs",
			spec: Spec{},
		},
		{
			name: "unnamed job",
			spec: Spec{Jobs: []Job{{Params: jobParams("g50@0")}}},
		},
		{
			name: "duplicate names",
			spec: Spec{Jobs: []Job{
				{Name: "a", Params: jobParams("g50@0")},
				{Name: "a", Params: jobParams("c50@0")},
			}},
		},
		{
			name: "bad layout",
			spec: Spec{Jobs: []Job{{Name: "a", Layout: "columnar", Params: jobParams("g50@0")}}},
		},
		{
			name: "bad params",
			spec: Spec{Jobs: []Job{{Name: "a", Params: engine.Params{Total: -1, Interval: 1}}}},
		},
		{
			name: "negative concurrency",
			spec: Spec{Concurrency: -1, Jobs: []Job{{Name: "a", Params: jobParams("g50@0")}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	runner := testRunner(t, 0, WithMetricsRegistry(metric.NewRegistry()))

	spec := &Spec{
		Concurrency: 2,
		Jobs: []Job{
			{Name: "ramp", Params: jobParams("g100@10s"), Output: filepath.Join(dir, "ramp.json")},
			{Name: "spike", Params: jobParams("c90@5s^"), Output: filepath.Join(dir, "spike.gob")},
			{Name: "raw", Layout: LayoutRaw, Params: jobParams("g30@0"), Output: filepath.Join(dir, "raw.json")},
		},
	}

	results, err := runner.Run(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, results, 3)

	ids := make(map[uuid.UUID]struct{})
	for i, res := range results {
		assert.Equal(t, spec.Jobs[i].Name, res.Name)
		assert.NoError(t, res.Err)
		assert.NotEqual(t, uuid.Nil, res.ID)
		assert.Equal(t, spec.Jobs[i].Output, res.Output)
		ids[res.ID] = struct{}{}
	}
	assert.Len(t, ids, 3)

	// structured json output round-trips
	doc, err := formats.LoadStructured(filepath.Join(dir, "ramp.json"))
	require.NoError(t, err)
	s, err := doc.Series()
	require.NoError(t, err)
	assert.Equal(t, 11, s.Len())
	assert.InDelta(t, 100.0, s.Values["gpu"][10], 1e-9)

	// gob output loads too
	_, err = formats.LoadStructured(filepath.Join(dir, "spike.gob"))
	require.NoError(t, err)

	// raw layout picked per job
	raw, err := formats.LoadRaw(filepath.Join(dir, "raw.json"))
	require.NoError(t, err)
	assert.Contains(t, raw.Data, "gpu")
}

func TestRunRecordsJobFailure(t *testing.T) {
	runner := testRunner(t, 0)

	spec := &Spec{
		Concurrency: 1,
		Jobs: []Job{
			{Name: "good", Params: jobParams("g50@0")},
			{Name: "bad", Params: jobParams("z50@0")}, // no such shorthand
			{Name: "also-good", Params: jobParams("c50@0")},
		},
	}

	results, err := runner.Run(context.Background(), spec)
	require.NoError(t, err)
	assert.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.True(t, stderrors.Is(results[1].Err, errors.ErrUnknownField))
	assert.NoError(t, results[2].Err)
}

func TestRunStopOnError(t *testing.T) {
	runner := testRunner(t, 0)

	spec := &Spec{
		Concurrency: 1,
		StopOnError: true,
		Jobs: []Job{
			{Name: "bad", Params: jobParams("z50@0")},
			{Name: "after", Params: jobParams("g50@0")},
		},
	}

	results, err := runner.Run(context.Background(), spec)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnknownField))
	require.Error(t, results[0].Err)
}

func TestDeriveSeeds(t *testing.T) {
	base := int64(1000)
	fixed := int64(7)
	spec := &Spec{
		Seed: &base,
		Jobs: []Job{
			{Name: "a", Params: jobParams("g50@0")},
			{Name: "b", Params: jobParams("g50@0")},
			{Name: "c", Params: func() engine.Params {
				p := jobParams("g50@0")
				p.Seed = &fixed
				return p
			}()},
		},
	}
	require.NoError(t, spec.Validate())
	spec.deriveSeeds()

	require.NotNil(t, spec.Jobs[0].Params.Seed)
	assert.Equal(t, int64(1000), *spec.Jobs[0].Params.Seed)
	assert.Equal(t, int64(1001), *spec.Jobs[1].Params.Seed)
	// explicit seeds are preserved
	assert.Equal(t, int64(7), *spec.Jobs[2].Params.Seed)
}

func TestBatchSeedMakesJobsReproducible(t *testing.T) {
	seed := int64(99)
	spec := func() *Spec {
		return &Spec{
			Concurrency: 2,
			Seed:        &seed,
			Jobs: []Job{
				{Name: "a", Params: jobParams("g50@0")},
				{Name: "b", Params: jobParams("g50@0")},
			},
		}
	}

	run := func(t *testing.T) [2]*series.Series {
		t.Helper()
		var out [2]*series.Series
		sink := &captureSink{byJob: map[string]*series.Series{}}
		runner := testRunner(t, 0.1, WithSink(sink))
		_, err := runner.Run(context.Background(), spec())
		require.NoError(t, err)
		out[0] = sink.byJob["a"]
		out[1] = sink.byJob["b"]
		return out
	}

	first := run(t)
	second := run(t)

	// same derived seed per job across runs
	assert.Equal(t, first[0].Values["gpu"], second[0].Values["gpu"])
	assert.Equal(t, first[1].Values["gpu"], second[1].Values["gpu"])
	// different derived seeds across jobs
	assert.NotEqual(t, first[0].Values["gpu"], first[1].Values["gpu"])
}

type captureSink struct {
	mu    sync.Mutex
	byJob map[string]*series.Series
}

func (c *captureSink) Publish(_ context.Context, job string, s *series.Series) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byJob[job] = s
	return nil
}

func TestSinkReceivesDatasets(t *testing.T) {
	sink := &captureSink{byJob: map[string]*series.Series{}}
	runner := testRunner(t, 0, WithSink(sink))

	spec := &Spec{
		Concurrency: 2,
		Jobs: []Job{
			{Name: "a", Params: jobParams("g40@0")},
			{Name: "b", Params: jobParams("c60@0")},
		},
	}
	_, err := runner.Run(context.Background(), spec)
	require.NoError(t, err)

	require.Len(t, sink.byJob, 2)
	assert.InDelta(t, 40.0, sink.byJob["a"].Values["gpu"][0], 1e-9)
	assert.InDelta(t, 60.0, sink.byJob["b"].Values["cpu"][0], 1e-9)
}
