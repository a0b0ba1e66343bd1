package field

import (
	"fmt"

	"github.com/chrisdreid/chronosynth/errors"
)

// Transition identifies the interpolation law used between two adjacent
// keyframe values. The set is closed: evaluation switches over it
// exhaustively, there is no plugin mechanism.
type Transition string

// Transition kinds
const (
	TransitionLinear Transition = "linear"
	TransitionSmooth Transition = "smooth"
	TransitionStep   Transition = "step"
	TransitionSin    Transition = "sin"
	TransitionPow    Transition = "pow"
)

// Valid reports whether t is a known transition kind
func (t Transition) Valid() bool {
	switch t {
	case TransitionLinear, TransitionSmooth, TransitionStep, TransitionSin, TransitionPow:
		return true
	}
	return false
}

// ParseTransition parses a transition name from configuration
func ParseTransition(s string) (Transition, error) {
	t := Transition(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown transition %q", s)
	}
	return t, nil
}

// Spec describes one generated field: its one-character shorthand used by the
// keyframe language, numeric range, noise amplitude, default transition and
// display metadata. Unit and Description are opaque to the engine.
type Spec struct {
	Name              string     `json:"-"                  yaml:"-"`
	Shorthand         string     `json:"shorthand"          yaml:"shorthand"`
	Min               float64    `json:"min"                yaml:"min"`
	Max               float64    `json:"max"                yaml:"max"`
	NoiseAmount       float64    `json:"noise_amount"       yaml:"noise_amount"`
	DefaultTransition Transition `json:"default_transition,omitempty" yaml:"default_transition,omitempty"`
	Color             string     `json:"color,omitempty"    yaml:"color,omitempty"`
	Unit              string     `json:"unit,omitempty"     yaml:"unit,omitempty"`
	Description       string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks the spec for structural errors
func (s *Spec) Validate() error {
	if s.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Spec", "Validate", "field name is required")
	}
	if len(s.Shorthand) != 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Spec", "Validate",
			fmt.Sprintf("field %s shorthand must be a single character", s.Name))
	}
	if s.Min > s.Max {
		return errors.WrapInvalid(errors.ErrInvalidRange, "Spec", "Validate",
			fmt.Sprintf("field %s range [%g, %g]", s.Name, s.Min, s.Max))
	}
	if s.NoiseAmount < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Spec", "Validate",
			fmt.Sprintf("field %s noise_amount must be >= 0", s.Name))
	}
	if s.DefaultTransition != "" && !s.DefaultTransition.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Spec", "Validate",
			fmt.Sprintf("field %s default_transition %q", s.Name, s.DefaultTransition))
	}
	return nil
}

// Range returns max - min
func (s *Spec) Range() float64 {
	return s.Max - s.Min
}

// Clamp limits v to the field's [min, max] range
func (s *Spec) Clamp(v float64) float64 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}
