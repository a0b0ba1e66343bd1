// Package batch runs independent generation jobs from a YAML spec on a
// worker pool.
//
// Each job is a complete set of generation parameters plus an optional
// output file and layout. Jobs get uuid identifiers and, when the spec
// sets a batch seed, per-job derived seeds so the whole batch is
// reproducible while every job's noise differs. A failed job is recorded
// in its Result without aborting the rest of the batch unless the spec
// sets stop_on_error.
package batch
