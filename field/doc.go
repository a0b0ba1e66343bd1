// Package field defines the field registry consumed by every other part of
// the generation pipeline.
//
// A Spec carries one field's keyframe shorthand, numeric range, noise
// amplitude, default transition law and display metadata. The Registry
// enforces shorthand uniqueness, provides lookup by name or shorthand, and is
// immutable during generation except for the explicitly modeled
// default-transition mutation ("g~" style keyframes).
package field
