package field

import (
	"fmt"

	"github.com/chrisdreid/chronosynth/errors"
)

// Registry holds the field specs for one generation run. Shorthand characters
// are unique across the registry. Iteration order is insertion order so that
// every walk over the registry is deterministic.
//
// The registry is fixed before parsing begins; the only mutation afterwards is
// SetDefaultTransition, driven by bare default-transition keyframes ("g~").
type Registry struct {
	specs     map[string]*Spec
	shorthand map[string]string // shorthand -> field name
	order     []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		specs:     make(map[string]*Spec),
		shorthand: make(map[string]string),
	}
}

// Add registers a field spec. The spec is validated and its shorthand must
// not collide with an already-registered field.
func (r *Registry) Add(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, exists := r.specs[spec.Name]; exists {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Add",
			fmt.Sprintf("field %s already registered", spec.Name))
	}
	if owner, taken := r.shorthand[spec.Shorthand]; taken {
		return errors.WrapInvalid(errors.ErrDuplicateShorthand, "Registry", "Add",
			fmt.Sprintf("shorthand %q already used by field %s", spec.Shorthand, owner))
	}
	if spec.DefaultTransition == "" {
		spec.DefaultTransition = TransitionLinear
	}

	s := spec
	r.specs[s.Name] = &s
	r.shorthand[s.Shorthand] = s.Name
	r.order = append(r.order, s.Name)
	return nil
}

// Field returns the spec for a field name
func (r *Registry) Field(name string) (*Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// ByShorthand returns the spec for a shorthand character
func (r *Registry) ByShorthand(sh string) (*Spec, bool) {
	name, ok := r.shorthand[sh]
	if !ok {
		return nil, false
	}
	return r.specs[name], true
}

// Names returns the field names in insertion order
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered fields
func (r *Registry) Len() int {
	return len(r.order)
}

// SetDefaultTransition mutates a field's default transition. This is the
// registry-level effect of a bare default-transition keyframe; it never
// touches an already-resolved timeline.
func (r *Registry) SetDefaultTransition(name string, t Transition) error {
	spec, ok := r.specs[name]
	if !ok {
		return errors.WrapInvalid(errors.ErrUnknownField, "Registry", "SetDefaultTransition", name)
	}
	if !t.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "SetDefaultTransition",
			fmt.Sprintf("transition %q", t))
	}
	spec.DefaultTransition = t
	return nil
}

// Clone returns a deep copy of the registry. Batch runs clone the shared
// registry per task so default-transition keyframes in one dataset cannot
// leak into another.
func (r *Registry) Clone() *Registry {
	clone := NewRegistry()
	for _, name := range r.order {
		s := *r.specs[name]
		clone.specs[name] = &s
		clone.shorthand[s.Shorthand] = name
		clone.order = append(clone.order, name)
	}
	return clone
}
