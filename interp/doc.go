// Package interp evaluates resolved timeline segments at arbitrary
// timestamps: binary search for the covering segment, then an exhaustive
// evaluation over the closed transition set (linear, smooth, step, sin,
// pow), with optional noise from an injectable source.
package interp
