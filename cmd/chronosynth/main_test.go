package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdreid/chronosynth/config"
	"github.com/chrisdreid/chronosynth/engine"
	"github.com/chrisdreid/chronosynth/field"
	"github.com/chrisdreid/chronosynth/formats"
	"github.com/chrisdreid/chronosynth/resample"
	"github.com/chrisdreid/chronosynth/series"
)

func testConfig() *config.Config {
	return &config.Config{
		Fields: map[string]field.Spec{
			"gpu": {Shorthand: "g", Min: 0, Max: 100},
		},
		Generation: engine.Params{
			Total:     3600,
			Interval:  1,
			Keyframes: []string{"g50@0"},
		},
	}
}

func TestBuildParamsDefaultsFromConfig(t *testing.T) {
	cli := &CLIConfig{Total: -1, Interval: -1, Layout: "structured"}
	params, err := buildParams(cli, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 3600.0, params.Total)
	assert.Equal(t, 1.0, params.Interval)
	assert.Equal(t, []string{"g50@0"}, params.Keyframes)
	assert.False(t, params.Start.IsZero(), "zero start should default to now")
	assert.Nil(t, params.Seed)
	assert.Nil(t, params.Resample)
}

func TestBuildParamsFlagOverrides(t *testing.T) {
	cli := &CLIConfig{
		Total:            600,
		Interval:         0.5,
		Start:            "2025-06-01T12:00:00Z",
		Seed:             42,
		SeedSet:          true,
		NormalizeOutput:  true,
		Keyframes:        []string{"g80@5m~"},
		Masks:            stringList{"pow=2"},
		ResampleMethod:   "lttb",
		ResamplePoints:   100,
		ResampleInterval: 0,
	}
	params, err := buildParams(cli, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 600.0, params.Total)
	assert.Equal(t, 0.5, params.Interval)
	assert.Equal(t, []string{"g80@5m~"}, params.Keyframes)
	assert.Equal(t, []string{"pow=2"}, params.Masks)
	assert.True(t, params.NormalizeOutput)
	require.NotNil(t, params.Seed)
	assert.Equal(t, int64(42), *params.Seed)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), params.Start)
	require.NotNil(t, params.Resample)
	assert.Equal(t, resample.MethodLTTB, params.Resample.Method)
	assert.Equal(t, 100, params.Resample.Points)
}

func TestBuildParamsExtendLoadsSeries(t *testing.T) {
	s := series.New(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 1,
		[]field.Spec{{Name: "gpu", Shorthand: "g", Min: 0, Max: 100}})
	s.Append(0, map[string]float64{"gpu": 30})
	s.Append(1, map[string]float64{"gpu": 70})

	path := filepath.Join(t.TempDir(), "prev.json")
	require.NoError(t, formats.Save(path, formats.FromSeries(s)))

	cli := &CLIConfig{Total: -1, Interval: -1, Extend: path}
	params, err := buildParams(cli, testConfig())
	require.NoError(t, err)

	require.NotNil(t, params.Extend)
	assert.Equal(t, 70.0, params.Extend.Last()["gpu"])
}

func TestLoadSeriesHandlesBothLayouts(t *testing.T) {
	s := series.New(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 1,
		[]field.Spec{{Name: "gpu", Shorthand: "g", Min: 0, Max: 100}})
	s.Append(0, map[string]float64{"gpu": 5})

	dir := t.TempDir()
	structured := filepath.Join(dir, "a.json")
	raw := filepath.Join(dir, "b.json")
	require.NoError(t, formats.Save(structured, formats.FromSeries(s)))
	require.NoError(t, formats.Save(raw, formats.RawFromSeries(s)))

	got, err := loadSeries(structured)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	got, err = loadSeries(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestLoadSeriesSurfacesStructuredDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	// decodes as ts-structured but the timeslot axis is the wrong type, so
	// the structured decode error must come back, not a raw-layout one
	data := `{"version":"1.0.0","type":"ts-structured","timeslots":"oops"}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := loadSeries(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "json decode failed")
	assert.NotContains(t, err.Error(), "holds")
}
