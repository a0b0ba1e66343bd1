// Package timeline resolves parsed keyframe events into per-field segment
// lists ready for sampling.
//
// The resolver walks all events in (time, appearance) order with one state
// machine per field. Each field starts at its minimum (or a seeded initial
// value) at t=0, every ordinary event closes the span since the previous
// boundary with a transition segment, and post-behaviors expand into extra
// hold and return segments. Relationship options spawn synthetic step events
// on their target fields at the same timestamp. The final segment of every
// field extends to +Inf, so a Timeline answers a value query at any
// non-negative time.
package timeline
