// Package errors provides standardized error handling patterns for ChronoSynth.
//
// # Overview
//
// The package defines the full error taxonomy for keyframe parsing, timeline
// resolution and post-processing, split into two classes:
//
//   - Invalid: bad user input (malformed expressions, unknown fields,
//     out-of-range parameters). Reported with the offending token and keyframe
//     index via ParseError; never retried or silently recovered.
//   - Internal: invariant violations inside the timeline resolver
//     (overlapping segments, coverage gaps). These indicate a bug, not bad
//     input, and abort generation.
//
// # Usage
//
// Sentinel errors are checked with errors.Is:
//
//	if errors.Is(err, errors.ErrUnknownField) { ... }
//
// Context wrapping follows the "component.method: action failed" convention:
//
//	return errors.WrapInvalid(err, "Parser", "Parse", "tokenize keyframe")
//
// A single malformed keyframe aborts generation for that dataset; batch
// callers decide whether to skip the dataset or abort the whole batch.
package errors
