// Package chronosynth synthesizes deterministic, noise-perturbed multi-field
// time series from a compact textual keyframe language.
//
// # Pipeline
//
// Generation is a straight-line transformation over a handful of packages,
// leaf-first:
//
//   - field: the field registry (shorthand, range, noise, default transition)
//   - keyframe: the dual-syntax keyframe DSL parser and time/value resolvers
//   - timeline: event expansion into ordered, non-overlapping value segments
//   - interp: segment sampling under the transition laws, plus seeded noise
//   - mask: global post-processing functions over a sampled series
//   - series: the sample/series data model and output normalization
//   - resample: mean, min/max, linear-redistribution and LTTB downsampling
//   - engine: the generator tying the pipeline together
//
// Persistence lives in formats (structured and raw layouts over JSON and
// gob). Batch generation of independent datasets runs on
// the generic worker pool in pkg/worker via the batch package, and completed
// datasets can be pushed to NATS with output/natspub.
//
// # Determinism
//
// The full timeline is resolved before any value is sampled. Noise comes from
// an injectable seeded source, never from package-global state: two runs with
// the same keyframes, duration and seed produce identical output.
//
// # Keyframe language
//
// Two interchangeable syntaxes describe the same events:
//
//	g60@30s           classic: field g set to 60 at 30 seconds
//	g+10@20s~         relative +10 with a smooth transition
//	g80@20s^          pulse to 80, then return to the prior value
//	@30s;g-20;c-40    at-sign: one timestamp, several field updates
//	g80@30s(c*0.75)   relationship: also set c to 0.75x at the same time
//
// See the keyframe package for the complete grammar.
package chronosynth
