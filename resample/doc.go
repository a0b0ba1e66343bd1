// Package resample reduces a dense series onto a coarser grid: mean and
// min/max binning, integral-preserving linear redistribution, and LTTB
// shape-preserving downsampling.
package resample
