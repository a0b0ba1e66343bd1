package timeline

import (
	"math"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
)

// Segment is one resolved, non-overlapping span of a field's timeline:
// the value moves from StartValue at Start to EndValue at End under the
// segment's transition law. End is +Inf for the trailing hold.
type Segment struct {
	Field      string
	Start      float64
	End        float64
	StartValue float64
	EndValue   float64
	Transition field.Transition

	// Pow is the exponent for pow transitions
	Pow float64

	// Noise overrides the field's noise amplitude for samples inside this
	// segment; negative means no override
	Noise float64
}

// Flat reports whether the segment carries a constant value
func (s *Segment) Flat() bool {
	return s.StartValue == s.EndValue
}

// Timeline holds the resolved segments for every field in the registry.
// Segments per field are in strictly increasing start order, tile [0, +Inf)
// with no gap or overlap, and are read-only after resolution.
type Timeline struct {
	segments map[string][]Segment
	order    []string
	total    float64
}

// Fields returns the field names in registry order
func (t *Timeline) Fields() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Segments returns the resolved segments for a field
func (t *Timeline) Segments(name string) []Segment {
	return t.segments[name]
}

// Total returns the timeline duration in seconds
func (t *Timeline) Total() float64 {
	return t.total
}

// verify checks the segment invariants for every field: coverage of
// [0, +Inf) with no gaps and no overlaps. A failure here is a resolver bug,
// not a user error.
func (t *Timeline) verify() error {
	for _, name := range t.order {
		segs := t.segments[name]
		if len(segs) == 0 {
			return errors.WrapInternal(errors.ErrUnresolvedSegmentGap, "Timeline", "verify",
				"field "+name+" has no segments")
		}
		if segs[0].Start != 0 {
			return errors.WrapInternal(errors.ErrUnresolvedSegmentGap, "Timeline", "verify",
				"field "+name+" does not start at zero")
		}
		for i := 1; i < len(segs); i++ {
			switch {
			case segs[i].Start < segs[i-1].End:
				return errors.WrapInternal(errors.ErrOverlappingSegment, "Timeline", "verify",
					"field "+name)
			case segs[i].Start > segs[i-1].End:
				return errors.WrapInternal(errors.ErrUnresolvedSegmentGap, "Timeline", "verify",
					"field "+name)
			}
		}
		if !math.IsInf(segs[len(segs)-1].End, 1) {
			return errors.WrapInternal(errors.ErrUnresolvedSegmentGap, "Timeline", "verify",
				"field "+name+" missing trailing hold")
		}
	}
	return nil
}
