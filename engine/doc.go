// Package engine orchestrates the generation pipeline: keyframe parsing,
// timeline resolution, parallel per-field sampling, masks, normalization,
// and optional resampling. A Generator is safe for concurrent use; every
// run works on its own registry clone and derives per-field noise seeds
// from the run seed, so fixed-seed output is bit-identical across runs and
// schedulings.
package engine
