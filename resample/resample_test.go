package resample

import (
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
	"github.com/chrisdreid/chronosynth/series"
)

func grid(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}

func TestMeanBasic(t *testing.T) {
	times := grid(6, 1) // 0..5
	values := []float64{10, 20, 30, 40, 50, 60}

	col := Mean(times, values, 2)

	assert.Equal(t, []float64{0, 2, 4}, col.Times)
	assert.Equal(t, []float64{15, 35, 55}, col.Values)
}

func TestMeanEmptyBinCarriesForward(t *testing.T) {
	times := []float64{0, 1, 6, 7}
	values := []float64{10, 20, 80, 100}

	col := Mean(times, values, 2)

	// bins [0,2) [2,4) [4,6) [6,8): middle two are empty
	assert.Equal(t, []float64{0, 2, 4, 6}, col.Times)
	assert.Equal(t, []float64{15, 15, 15, 90}, col.Values)
}

func TestMinMaxEnvelope(t *testing.T) {
	times := grid(4, 1)
	values := []float64{10, 40, 5, 30}

	col := MinMax(times, values, 2)

	assert.Equal(t, []float64{0, 2, 2, 4}, col.Times)
	assert.Equal(t, []float64{10, 40, 5, 30}, col.Values)
}

func TestRedistributePreservesIntegral(t *testing.T) {
	times := grid(10, 1)
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	col := Redistribute(times, values, 2.5)

	var orig, resampled float64
	for i, v := range values {
		orig += v * sampleWidth(times, i, 2.5)
	}
	for _, v := range col.Values {
		resampled += v * 2.5
	}
	assert.InDelta(t, orig, resampled, 1e-9)
}

func TestRedistributeConstantStaysConstant(t *testing.T) {
	times := grid(8, 1)
	values := []float64{5, 5, 5, 5, 5, 5, 5, 5}

	col := Redistribute(times, values, 2)
	for i, v := range col.Values[:len(col.Values)-1] {
		assert.InDelta(t, 5.0, v, 1e-9, "bin %d", i)
	}
}

func TestLTTBKeepsEndpointsAndPeak(t *testing.T) {
	// monotonically rising to a single global max, then falling
	n := 1000
	times := grid(n, 1)
	values := make([]float64, n)
	for i := range values {
		values[i] = -math.Abs(float64(i)-600) + 600
	}

	col, err := LTTB(times, values, 10)
	require.NoError(t, err)
	require.Len(t, col.Times, 10)

	assert.Equal(t, times[0], col.Times[0])
	assert.Equal(t, times[n-1], col.Times[len(col.Times)-1])

	// the bucket holding the global maximum contributes a representative
	// at or adjacent to the peak
	best := math.Inf(-1)
	for _, v := range col.Values {
		best = math.Max(best, v)
	}
	assert.GreaterOrEqual(t, best, 590.0)
}

func TestLTTBInsufficientPoints(t *testing.T) {
	times := grid(10, 1)
	values := grid(10, 2)

	_, err := LTTB(times, values, 2)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInsufficientPoints))

	_, err = LTTB(times, values, 10)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInsufficientPoints))

	_, err = LTTB(times, values, 50)
	assert.Error(t, err)
}

func TestSpecValidate(t *testing.T) {
	assert.NoError(t, Spec{Method: MethodMean, Interval: 5}.Validate())
	assert.NoError(t, Spec{Method: MethodLTTB, Points: 100}.Validate())
	assert.Error(t, Spec{Method: MethodMean}.Validate())
	assert.Error(t, Spec{Method: MethodLTTB, Points: 2}.Validate())
	assert.Error(t, Spec{Method: "median", Interval: 5}.Validate())
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := series.New(time.Time{}, 1, []field.Spec{
		{Name: "cpu", Shorthand: "c", Min: 0, Max: 100},
	})
	for i := 0; i < 10; i++ {
		s.Append(float64(i), map[string]float64{"cpu": float64(i * 10)})
	}
	before := append([]float64(nil), s.Values["cpu"]...)

	out, err := Apply(s, Spec{Method: MethodMean, Interval: 3})
	require.NoError(t, err)
	require.Contains(t, out, "cpu")
	assert.Equal(t, before, s.Values["cpu"])
}

func TestApplyLTTBPerField(t *testing.T) {
	s := series.New(time.Time{}, 1, []field.Spec{
		{Name: "cpu", Shorthand: "c", Min: 0, Max: 100},
		{Name: "ram", Shorthand: "r", Min: 0, Max: 32},
	})
	for i := 0; i < 100; i++ {
		s.Append(float64(i), map[string]float64{
			"cpu": math.Sin(float64(i) / 7),
			"ram": float64(i % 13),
		})
	}

	out, err := Apply(s, Spec{Method: MethodLTTB, Points: 12})
	require.NoError(t, err)
	assert.Len(t, out["cpu"].Times, 12)
	assert.Len(t, out["ram"].Times, 12)
}
