package series

import (
	"fmt"
	"time"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
)

// Series is a generated dataset: one shared time axis plus per-field value
// columns, carrying the field specs (ranges, colors, units) so consumers
// need no side-channel configuration. Times are seconds relative to Start;
// absolute timestamps derive from Start plus the offset.
type Series struct {
	Start    time.Time    `json:"start"`
	Interval float64      `json:"interval"`
	Fields   []field.Spec `json:"fields"`
	Times    []float64    `json:"times"`

	// Values holds one column per field, aligned with Times
	Values map[string][]float64 `json:"values"`
}

// New allocates an empty series for the given specs and time axis metadata.
func New(start time.Time, interval float64, fields []field.Spec) *Series {
	s := &Series{
		Start:    start,
		Interval: interval,
		Fields:   append([]field.Spec(nil), fields...),
		Values:   make(map[string][]float64, len(fields)),
	}
	for _, f := range fields {
		s.Values[f.Name] = nil
	}
	return s
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.Times)
}

// FieldNames returns the field names in spec order.
func (s *Series) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Spec returns the spec for a field name, or nil.
func (s *Series) Spec(name string) *field.Spec {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Append adds one sample: a relative timestamp and one value per field.
func (s *Series) Append(t float64, values map[string]float64) {
	s.Times = append(s.Times, t)
	for name, v := range values {
		s.Values[name] = append(s.Values[name], v)
	}
}

// Timestamp returns the absolute timestamp of sample i.
func (s *Series) Timestamp(i int) time.Time {
	return s.Start.Add(time.Duration(s.Times[i] * float64(time.Second)))
}

// Last returns the final value of each field, for seeding load-and-extend
// runs. Empty series yields an empty map.
func (s *Series) Last() map[string]float64 {
	out := make(map[string]float64, len(s.Values))
	if s.Len() == 0 {
		return out
	}
	for name, col := range s.Values {
		if len(col) > 0 {
			out[name] = col[len(col)-1]
		}
	}
	return out
}

// Clone deep-copies the series.
func (s *Series) Clone() *Series {
	out := &Series{
		Start:    s.Start,
		Interval: s.Interval,
		Fields:   append([]field.Spec(nil), s.Fields...),
		Times:    append([]float64(nil), s.Times...),
		Values:   make(map[string][]float64, len(s.Values)),
	}
	for name, col := range s.Values {
		out.Values[name] = append([]float64(nil), col...)
	}
	return out
}

// NormalizeOutput rescales every column into [0,1] using its field range.
// The series is modified in place. A field with max == min cannot be
// normalized.
func (s *Series) NormalizeOutput() error {
	for i := range s.Fields {
		spec := &s.Fields[i]
		if spec.Range() <= 0 {
			return errors.WrapInvalid(errors.ErrDegenerateRange, "Series", "NormalizeOutput",
				fmt.Sprintf("field %q has max == min", spec.Name))
		}
		col := s.Values[spec.Name]
		for j, v := range col {
			col[j] = (v - spec.Min) / spec.Range()
		}
	}
	return nil
}
