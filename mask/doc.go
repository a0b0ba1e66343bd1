// Package mask applies global post-processing functions over a generated
// series: a multiplicative sine factor of the timestamp, or a power-curve
// reshaping in each field's normalized range.
package mask
