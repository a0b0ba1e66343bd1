// Package formats persists generated series in two logical layouts,
// ts-structured (shared timestamp axis) and ts-raw (per-field axes), each
// encodable as indented JSON or gob by file extension. Both layouts carry
// the field specs and a format version alongside the data.
package formats
