package interp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdreid/chronosynth/field"
	"github.com/chrisdreid/chronosynth/keyframe"
	"github.com/chrisdreid/chronosynth/timeline"
)

func seg(tr field.Transition, pow float64) *timeline.Segment {
	return &timeline.Segment{
		Start: 10, End: 20,
		StartValue: 0, EndValue: 100,
		Transition: tr,
		Pow:        pow,
		Noise:      -1,
	}
}

func TestValueTransitions(t *testing.T) {
	tests := []struct {
		name string
		seg  *timeline.Segment
		t    float64
		want float64
	}{
		{"linear start", seg(field.TransitionLinear, 2), 10, 0},
		{"linear mid", seg(field.TransitionLinear, 2), 15, 50},
		{"linear end", seg(field.TransitionLinear, 2), 20, 100},
		{"smooth mid", seg(field.TransitionSmooth, 2), 15, 50},
		{"smooth quarter", seg(field.TransitionSmooth, 2), 12.5, 100 * (1 - math.Cos(math.Pi*0.25)) / 2},
		{"step at start", seg(field.TransitionStep, 2), 10, 0},
		{"step after start", seg(field.TransitionStep, 2), 10.0001, 100},
		{"sin mid", seg(field.TransitionSin, 2), 15, 100 * math.Sin(math.Pi/4)},
		{"sin end", seg(field.TransitionSin, 2), 20, 100},
		{"pow default mid", seg(field.TransitionPow, 2), 15, 25},
		{"pow cubic mid", seg(field.TransitionPow, 3), 15, 12.5},
		{"before segment clamps", seg(field.TransitionLinear, 2), 5, 0},
		{"after segment clamps", seg(field.TransitionLinear, 2), 25, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Value(tc.seg, tc.t), 1e-9)
		})
	}
}

func TestValueInfiniteTail(t *testing.T) {
	tail := &timeline.Segment{
		Start: 20, End: math.Inf(1),
		StartValue: 80, EndValue: 20,
		Transition: field.TransitionStep,
		Pow:        2, Noise: -1,
	}
	assert.Equal(t, 80.0, Value(tail, 20))
	assert.Equal(t, 20.0, Value(tail, 20.0001))
	assert.Equal(t, 20.0, Value(tail, 1e9))
}

func buildSampler(t *testing.T, noiseAmount float64, noise NoiseSource, exprs ...string) (*Sampler, *field.Registry) {
	t.Helper()
	reg := field.NewRegistry()
	require.NoError(t, reg.Add(field.Spec{Name: "cpu", Shorthand: "c", Min: 0, Max: 100, NoiseAmount: noiseAmount}))
	p := keyframe.NewParser(reg, 3600)
	events, err := p.ParseAll(exprs)
	require.NoError(t, err)
	tl, err := timeline.NewResolver(reg, 3600).Resolve(events)
	require.NoError(t, err)
	return NewSampler(tl, reg, noise), reg
}

func TestSamplerPulseProperty(t *testing.T) {
	s, _ := buildSampler(t, 0, nil, "c20@10s", "c80@20s^")

	at := func(ts float64) float64 {
		v, err := s.At("cpu", ts)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, 80.0, at(20))
	assert.Equal(t, 20.0, at(20.0001))
	assert.Equal(t, 20.0, at(1800))
}

func TestSamplerUnknownField(t *testing.T) {
	s, _ := buildSampler(t, 0, nil, "c50@10s")
	_, err := s.At("disk", 5)
	assert.Error(t, err)
}

func TestSamplerNoiseBoundedAndSeeded(t *testing.T) {
	const amp = 0.1
	mk := func() *Sampler {
		s, _ := buildSampler(t, amp, rand.New(rand.NewSource(42)), "c50@10s")
		return s
	}
	a, b := mk(), mk()
	for _, ts := range []float64{0, 5, 10, 100, 3600} {
		va, err := a.At("cpu", ts)
		require.NoError(t, err)
		vb, err := b.At("cpu", ts)
		require.NoError(t, err)
		// same seed, same sequence
		assert.Equal(t, va, vb)

		// offset never exceeds amplitude x range
		clean, err := buildSamplerValue(t, ts)
		require.NoError(t, err)
		assert.LessOrEqual(t, math.Abs(va-clean), amp*100)
	}
}

func buildSamplerValue(t *testing.T, ts float64) (float64, error) {
	t.Helper()
	s, _ := buildSampler(t, 0, nil, "c50@10s")
	return s.At("cpu", ts)
}

func TestSamplerNoiseDisabledWithoutSource(t *testing.T) {
	s, _ := buildSampler(t, 0.5, nil, "c50@10s")
	v1, err := s.At("cpu", 100)
	require.NoError(t, err)
	v2, err := s.At("cpu", 100)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 50.0, v1)
}
