package mask

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/series"
)

// Mask is a stateless post-processing pass over a generated series,
// applied uniformly across all fields. Masks never touch the timeline or
// its segments.
type Mask interface {
	Apply(s *series.Series)
}

// Sin multiplies every value by a sine factor of its timestamp:
//
//	v *= Amp*sin(2*pi*Freq*t + Phase) + Offset
type Sin struct {
	Amp    float64 `json:"amp" yaml:"amp"`
	Freq   float64 `json:"freq" yaml:"freq"`
	Phase  float64 `json:"phase" yaml:"phase"`
	Offset float64 `json:"offset" yaml:"offset"`
}

// DefaultSin returns a Sin mask with the stock parameters.
func DefaultSin() Sin {
	return Sin{Amp: 0.3, Freq: 0.01, Phase: 0, Offset: 1}
}

// Apply implements Mask.
func (m Sin) Apply(s *series.Series) {
	for _, col := range s.Values {
		for i := range col {
			t := s.Times[i]
			col[i] *= m.Amp*math.Sin(2*math.Pi*m.Freq*t+m.Phase) + m.Offset
		}
	}
}

// Pow reshapes every value through a power curve in its field's normalized
// range: values are mapped to [0,1], raised to Exponent, and mapped back.
// Fields with a degenerate range collapse to their minimum.
type Pow struct {
	Exponent float64 `json:"exponent" yaml:"exponent"`
}

// Apply implements Mask.
func (m Pow) Apply(s *series.Series) {
	for _, spec := range s.Fields {
		col := s.Values[spec.Name]
		for i, v := range col {
			norm := 0.0
			if spec.Range() > 0 {
				norm = (v - spec.Min) / spec.Range()
			}
			norm = math.Max(0, math.Min(1, norm))
			col[i] = spec.Min + math.Pow(norm, m.Exponent)*spec.Range()
		}
	}
}

// Parse reads a mask expression: "sin(amp=0.3,freq=0.01,phase=0,offset=1)"
// with any subset of parameters, or "pow=K".
func Parse(expr string) (Mask, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "sin(") && strings.HasSuffix(expr, ")"):
		return parseSin(expr[len("sin(") : len(expr)-1])
	case strings.HasPrefix(expr, "pow="):
		k, err := strconv.ParseFloat(expr[len("pow="):], 64)
		if err != nil {
			return nil, errors.WrapInvalid(errors.ErrMalformedMaskExpression, "mask", "Parse",
				fmt.Sprintf("bad exponent in %q", expr))
		}
		return Pow{Exponent: k}, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrMalformedMaskExpression, "mask", "Parse",
			fmt.Sprintf("unrecognized mask %q", expr))
	}
}

func parseSin(params string) (Mask, error) {
	m := DefaultSin()
	if strings.TrimSpace(params) == "" {
		return m, nil
	}
	for _, part := range strings.Split(params, ",") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrMalformedMaskExpression, "mask", "Parse",
				fmt.Sprintf("bad sin parameter %q", part))
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, errors.WrapInvalid(errors.ErrMalformedMaskExpression, "mask", "Parse",
				fmt.Sprintf("bad sin parameter %q", part))
		}
		switch strings.TrimSpace(key) {
		case "amp":
			m.Amp = f
		case "freq":
			m.Freq = f
		case "phase":
			m.Phase = f
		case "offset":
			m.Offset = f
		default:
			return nil, errors.WrapInvalid(errors.ErrMalformedMaskExpression, "mask", "Parse",
				fmt.Sprintf("unknown sin parameter %q", strings.TrimSpace(key)))
		}
	}
	return m, nil
}

// ParseAll parses a list of mask expressions, preserving order.
func ParseAll(exprs []string) ([]Mask, error) {
	out := make([]Mask, 0, len(exprs))
	for _, e := range exprs {
		m, err := Parse(e)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// ApplyAll runs masks over the series in order.
func ApplyAll(s *series.Series, masks []Mask) {
	for _, m := range masks {
		m.Apply(s)
	}
}
