package keyframe

import "github.com/chrisdreid/chronosynth/field"

// PostKind discriminates post-behavior forms
type PostKind int

// Post-behavior kinds
const (
	// PostReturn is a simple pulse: return to the pre-event value,
	// optionally offset ("^", "^+10", "^-5").
	PostReturn PostKind = iota
	// PostTwoStage spikes to a peak and then transitions to an explicit
	// return value over a duration ("^75,55:5s").
	PostTwoStage
)

// PostBehavior describes the pulse marker attached to an event
type PostBehavior struct {
	Kind PostKind

	// PostReturn: optional offset applied to the pre-event value
	HasOffset bool
	OffsetOp  byte
	Offset    float64

	// PostTwoStage
	Peak      float64
	Return    float64
	ReturnDur float64
}

// Relationship is a sub-expression inside an event's options that drives a
// synthetic event on another field at the same timestamp ("c*0.75").
type Relationship struct {
	Field   string // resolved field name
	Op      byte   // one of * + - / ^
	Operand float64
}

// Options holds the parenthesized per-event options
type Options struct {
	// Pow is the exponent for pow transitions (pow=K); PowSet marks presence
	Pow    float64
	PowSet bool
	// Noise overrides the field's noise amplitude for samples in segments
	// produced by this event (n=X)
	Noise    float64
	NoiseSet bool
}

// Event is one normalized raw keyframe event. Both syntaxes parse into this
// shape, so the timeline resolver is syntax-agnostic.
//
// A default-transition event (bare "g~") has HasTime and HasValue false and
// only carries Transition. Index is the order of appearance across the whole
// input list and breaks ties between same-timestamp events.
type Event struct {
	Field     string // field name from the registry
	Shorthand string

	HasTime bool
	Time    float64 // resolved seconds from timeline start

	HasValue bool
	Value    ValueExpr

	HasTransition bool
	Transition    field.Transition

	Post *PostBehavior

	// Duration/hold suffix ":Ds_Hs"; negative means absent
	Duration float64
	Hold     float64

	Options       Options
	Relationships []Relationship

	Index int
}

// IsDefaultTransition reports whether the event only updates the field's
// default transition and contributes no timeline segment by itself.
func (e *Event) IsDefaultTransition() bool {
	return !e.HasTime && !e.HasValue && e.HasTransition
}
