package resample

import (
	"fmt"
	"math"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/series"
)

// Method selects a resampling algorithm.
type Method string

// Supported methods.
const (
	MethodMean         Method = "mean"
	MethodMinMax       Method = "minmax"
	MethodRedistribute Method = "redistribute"
	MethodLTTB         Method = "lttb"
)

// Spec describes one resampling pass. Interval drives the binned methods;
// Points drives LTTB.
type Spec struct {
	Method   Method  `json:"method" yaml:"method"`
	Interval float64 `json:"interval,omitempty" yaml:"interval,omitempty"`
	Points   int     `json:"points,omitempty" yaml:"points,omitempty"`
}

// Validate checks the spec against its method's parameter requirements.
func (sp Spec) Validate() error {
	switch sp.Method {
	case MethodMean, MethodMinMax, MethodRedistribute:
		if sp.Interval <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "resample", "Validate",
				fmt.Sprintf("method %q requires a positive interval", sp.Method))
		}
	case MethodLTTB:
		if sp.Points < 3 {
			return errors.WrapInvalid(errors.ErrInsufficientPoints, "resample", "Validate",
				"lttb requires at least 3 target points")
		}
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "resample", "Validate",
			fmt.Sprintf("unknown method %q", sp.Method))
	}
	return nil
}

// Column is one field's resampled output: its own timestamp axis plus
// values, the raw-layout projection.
type Column struct {
	Times  []float64
	Values []float64
}

// Mean partitions samples into fixed-width bins and emits each bin's
// arithmetic mean at the bin-start timestamp. Empty bins carry the previous
// bin's value forward, so the output grid is gap-free.
func Mean(times, values []float64, interval float64) Column {
	if len(times) == 0 {
		return Column{}
	}
	bins := binCount(times, interval)
	out := Column{
		Times:  make([]float64, 0, bins),
		Values: make([]float64, 0, bins),
	}
	start := times[0]
	idx := 0
	prev := values[0]
	for b := 0; b < bins; b++ {
		binStart := start + float64(b)*interval
		binEnd := binStart + interval
		sum, n := 0.0, 0
		for idx < len(times) && times[idx] < binEnd {
			sum += values[idx]
			n++
			idx++
		}
		v := prev
		if n > 0 {
			v = sum / float64(n)
		}
		out.Times = append(out.Times, binStart)
		out.Values = append(out.Values, v)
		prev = v
	}
	return out
}

// MinMax emits two points per bin, bin-start timestamp carrying the bin
// minimum and bin-end carrying the maximum, preserving the envelope shape.
// Empty bins carry the previous bin's last value for both.
func MinMax(times, values []float64, interval float64) Column {
	if len(times) == 0 {
		return Column{}
	}
	bins := binCount(times, interval)
	out := Column{
		Times:  make([]float64, 0, 2*bins),
		Values: make([]float64, 0, 2*bins),
	}
	start := times[0]
	idx := 0
	prev := values[0]
	for b := 0; b < bins; b++ {
		binStart := start + float64(b)*interval
		binEnd := binStart + interval
		lo, hi := math.Inf(1), math.Inf(-1)
		n := 0
		for idx < len(times) && times[idx] < binEnd {
			v := values[idx]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			n++
			idx++
		}
		if n == 0 {
			lo, hi = prev, prev
		}
		out.Times = append(out.Times, binStart, binEnd)
		out.Values = append(out.Values, lo, hi)
		prev = hi
	}
	return out
}

// Redistribute splits each sample's point mass across the target bins it
// overlaps, weighting linearly by overlap length, so the integral over time
// is preserved. Each sample is treated as covering [t_i, t_i+1).
func Redistribute(times, values []float64, interval float64) Column {
	if len(times) == 0 {
		return Column{}
	}
	bins := binCount(times, interval)
	start := times[0]
	area := make([]float64, bins)
	for i := range times {
		width := sampleWidth(times, i, interval)
		lo, hi := times[i], times[i]+width
		// spread v*width over every bin the sample overlaps
		for b := int((lo - start) / interval); b < bins; b++ {
			binStart := start + float64(b)*interval
			binEnd := binStart + interval
			if binStart >= hi {
				break
			}
			overlap := math.Min(hi, binEnd) - math.Max(lo, binStart)
			if overlap > 0 {
				area[b] += values[i] * overlap
			}
		}
	}
	out := Column{
		Times:  make([]float64, bins),
		Values: make([]float64, bins),
	}
	for b := 0; b < bins; b++ {
		out.Times[b] = start + float64(b)*interval
		out.Values[b] = area[b] / interval
	}
	return out
}

// LTTB downsamples to exactly points samples with the
// largest-triangle-three-buckets algorithm: the first and last samples are
// always kept, and each interior bucket contributes the sample forming the
// largest triangle with the previous pick and the next bucket's centroid.
func LTTB(times, values []float64, points int) (Column, error) {
	n := len(times)
	if points < 3 {
		return Column{}, errors.WrapInvalid(errors.ErrInsufficientPoints, "resample", "LTTB",
			"need at least 3 target points")
	}
	if points >= n {
		return Column{}, errors.WrapInvalid(errors.ErrInsufficientPoints, "resample", "LTTB",
			fmt.Sprintf("target %d does not reduce %d samples", points, n))
	}

	out := Column{
		Times:  make([]float64, 0, points),
		Values: make([]float64, 0, points),
	}
	out.Times = append(out.Times, times[0])
	out.Values = append(out.Values, values[0])

	bucket := float64(n-2) / float64(points-2)
	for i := 1; i < points-1; i++ {
		lo := int(float64(i-1)*bucket) + 1
		hi := int(float64(i)*bucket) + 1
		if hi > n-1 {
			hi = n - 1
		}

		nextLo := hi
		nextHi := int(float64(i+1)*bucket) + 1
		if nextHi > n {
			nextHi = n
		}
		var cx, cy float64
		for j := nextLo; j < nextHi; j++ {
			cx += times[j]
			cy += values[j]
		}
		cx /= float64(nextHi - nextLo)
		cy /= float64(nextHi - nextLo)

		px := out.Times[len(out.Times)-1]
		py := out.Values[len(out.Values)-1]
		best, bestArea := lo, -1.0
		for j := lo; j < hi; j++ {
			a := math.Abs((px-cx)*(values[j]-py)-(px-times[j])*(cy-py)) / 2
			if a > bestArea {
				bestArea = a
				best = j
			}
		}
		out.Times = append(out.Times, times[best])
		out.Values = append(out.Values, values[best])
	}

	out.Times = append(out.Times, times[n-1])
	out.Values = append(out.Values, values[n-1])
	return out, nil
}

// Apply resamples every field of a series under one spec. The binned
// methods share a deterministic bin axis, so the result keeps the
// structured layout; LTTB picks per-field timestamps, so its result is
// per-field columns. The input series is never modified, which lets callers
// fall back to the dense output when a pass fails.
func Apply(s *series.Series, sp Spec) (map[string]Column, error) {
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string]Column, len(s.Fields))
	for _, spec := range s.Fields {
		col := s.Values[spec.Name]
		switch sp.Method {
		case MethodMean:
			out[spec.Name] = Mean(s.Times, col, sp.Interval)
		case MethodMinMax:
			out[spec.Name] = MinMax(s.Times, col, sp.Interval)
		case MethodRedistribute:
			out[spec.Name] = Redistribute(s.Times, col, sp.Interval)
		case MethodLTTB:
			c, err := LTTB(s.Times, col, sp.Points)
			if err != nil {
				return nil, err
			}
			out[spec.Name] = c
		}
	}
	return out, nil
}

func binCount(times []float64, interval float64) int {
	span := times[len(times)-1] - times[0]
	return int(span/interval) + 1
}

// sampleWidth is the time covered by sample i, taken from the spacing to
// its successor; the last sample reuses the previous spacing.
func sampleWidth(times []float64, i int, fallback float64) float64 {
	switch {
	case i+1 < len(times):
		return times[i+1] - times[i]
	case i > 0:
		return times[i] - times[i-1]
	default:
		return fallback
	}
}
