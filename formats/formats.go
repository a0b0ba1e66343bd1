package formats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
	"github.com/chrisdreid/chronosynth/resample"
	"github.com/chrisdreid/chronosynth/series"
)

// Version is the persisted format version.
const Version = "1.0.0"

// Type discriminators.
const (
	TypeStructured = "ts-structured"
	TypeRaw        = "ts-raw"
)

// Structured is the shared-axis layout: one timeslot array plus one value
// column per field. The field specs travel with the data so consumers need
// no side-channel configuration.
type Structured struct {
	Version   string               `json:"version"`
	Type      string               `json:"type"`
	Start     time.Time            `json:"start"`
	Interval  float64              `json:"interval"`
	Fields    []field.Spec         `json:"fields"`
	Timeslots []float64            `json:"timeslots"`
	Data      map[string][]float64 `json:"data"`
}

// persistedSpec is the JSON form of a field spec inside a document. The
// config keys specs by name so field.Spec keeps the name out of its own
// JSON; documents hold specs in a list, so the name must travel inline.
type persistedSpec struct {
	Name string `json:"name"`
	field.Spec
}

func packSpecs(specs []field.Spec) []persistedSpec {
	out := make([]persistedSpec, len(specs))
	for i, s := range specs {
		out[i] = persistedSpec{Name: s.Name, Spec: s}
	}
	return out
}

func unpackSpecs(specs []persistedSpec) []field.Spec {
	out := make([]field.Spec, len(specs))
	for i, p := range specs {
		s := p.Spec
		s.Name = p.Name
		out[i] = s
	}
	return out
}

// MarshalJSON writes the field specs with their names inline.
func (d *Structured) MarshalJSON() ([]byte, error) {
	type alias Structured
	return json.Marshal(&struct {
		*alias
		Fields []persistedSpec `json:"fields"`
	}{(*alias)(d), packSpecs(d.Fields)})
}

// UnmarshalJSON restores the field names dropped by field.Spec's own tags.
func (d *Structured) UnmarshalJSON(data []byte) error {
	type alias Structured
	aux := struct {
		*alias
		Fields []persistedSpec `json:"fields"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Fields = unpackSpecs(aux.Fields)
	return nil
}

// Track is one field's independent axis in the raw layout.
type Track struct {
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// Raw is the per-field layout: each field carries its own timestamp axis.
// It holds the same information as Structured when all tracks share one
// axis, and is the only layout that can hold per-field resampled output.
type Raw struct {
	Version  string           `json:"version"`
	Type     string           `json:"type"`
	Start    time.Time        `json:"start"`
	Interval float64          `json:"interval"`
	Fields   []field.Spec     `json:"fields"`
	Data     map[string]Track `json:"data"`
}

// MarshalJSON writes the field specs with their names inline.
func (d *Raw) MarshalJSON() ([]byte, error) {
	type alias Raw
	return json.Marshal(&struct {
		*alias
		Fields []persistedSpec `json:"fields"`
	}{(*alias)(d), packSpecs(d.Fields)})
}

// UnmarshalJSON restores the field names dropped by field.Spec's own tags.
func (d *Raw) UnmarshalJSON(data []byte) error {
	type alias Raw
	aux := struct {
		*alias
		Fields []persistedSpec `json:"fields"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Fields = unpackSpecs(aux.Fields)
	return nil
}

// FromSeries projects a series into the structured layout.
func FromSeries(s *series.Series) *Structured {
	out := &Structured{
		Version:   Version,
		Type:      TypeStructured,
		Start:     s.Start,
		Interval:  s.Interval,
		Fields:    append([]field.Spec(nil), s.Fields...),
		Timeslots: append([]float64(nil), s.Times...),
		Data:      make(map[string][]float64, len(s.Values)),
	}
	for name, col := range s.Values {
		out.Data[name] = append([]float64(nil), col...)
	}
	return out
}

// Series converts the structured layout back into a series.
func (d *Structured) Series() (*series.Series, error) {
	if err := checkHeader(d.Version, d.Type, TypeStructured); err != nil {
		return nil, err
	}
	s := series.New(d.Start, d.Interval, d.Fields)
	s.Times = append([]float64(nil), d.Timeslots...)
	for name, col := range d.Data {
		if len(col) != len(d.Timeslots) {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Structured", "Series",
				fmt.Sprintf("field %q has %d values for %d timeslots", name, len(col), len(d.Timeslots)))
		}
		s.Values[name] = append([]float64(nil), col...)
	}
	return s, nil
}

// RawFromSeries projects a series into the raw layout, duplicating the
// shared axis per field.
func RawFromSeries(s *series.Series) *Raw {
	out := newRaw(s.Start, s.Interval, s.Fields)
	for name, col := range s.Values {
		out.Data[name] = Track{
			Times:  append([]float64(nil), s.Times...),
			Values: append([]float64(nil), col...),
		}
	}
	return out
}

// RawFromColumns builds the raw layout from per-field resampled columns,
// keeping the originating series' start and field specs.
func RawFromColumns(s *series.Series, cols map[string]resample.Column) *Raw {
	out := newRaw(s.Start, s.Interval, s.Fields)
	for name, col := range cols {
		out.Data[name] = Track{
			Times:  append([]float64(nil), col.Times...),
			Values: append([]float64(nil), col.Values...),
		}
	}
	return out
}

func newRaw(start time.Time, interval float64, fields []field.Spec) *Raw {
	return &Raw{
		Version:  Version,
		Type:     TypeRaw,
		Start:    start,
		Interval: interval,
		Fields:   append([]field.Spec(nil), fields...),
		Data:     make(map[string]Track, len(fields)),
	}
}

// Series converts a shared-axis raw document back into a series. It fails
// when tracks disagree on their axes, since the structured model cannot
// represent that.
func (d *Raw) Series() (*series.Series, error) {
	if err := checkHeader(d.Version, d.Type, TypeRaw); err != nil {
		return nil, err
	}
	s := series.New(d.Start, d.Interval, d.Fields)
	first := true
	for _, spec := range d.Fields {
		track, ok := d.Data[spec.Name]
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Raw", "Series",
				fmt.Sprintf("missing track for field %q", spec.Name))
		}
		if first {
			s.Times = append([]float64(nil), track.Times...)
			first = false
		} else if !sameAxis(s.Times, track.Times) {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Raw", "Series",
				fmt.Sprintf("field %q has a divergent time axis", spec.Name))
		}
		s.Values[spec.Name] = append([]float64(nil), track.Values...)
	}
	return s, nil
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func checkHeader(version, typ, want string) error {
	if typ != want {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "formats", "checkHeader",
			fmt.Sprintf("type %q, want %q", typ, want))
	}
	if version != Version {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "formats", "checkHeader",
			fmt.Sprintf("unsupported format version %q", version))
	}
	return nil
}
