// Package series defines the generated dataset model: a shared time axis,
// per-field value columns, and the field specs that produced them, plus the
// output-normalization pass.
package series
