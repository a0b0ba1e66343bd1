package formats

import (
	"encoding/gob"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chrisdreid/chronosynth/errors"
)

// ErrWrongLayout reports that a file decoded cleanly but holds the other
// document layout. Callers that accept either layout match on it to pick
// the right loader.
var ErrWrongLayout = stderrors.New("wrong document layout")

// Encoding selects the on-disk byte encoding. The logical layout
// (structured vs raw) is independent of it.
type Encoding string

// Supported encodings.
const (
	EncodingJSON Encoding = "json"
	EncodingGob  Encoding = "gob"
)

// EncodingForPath picks the encoding from a file extension, defaulting to
// JSON.
func EncodingForPath(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gob", ".bin":
		return EncodingGob
	default:
		return EncodingJSON
	}
}

// Save writes a structured or raw document to path, choosing the encoding
// from the extension.
func Save(path string, doc any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WrapInternal(err, "formats", "Save", "create failed")
	}
	defer f.Close()

	switch EncodingForPath(path) {
	case EncodingGob:
		if err := gob.NewEncoder(f).Encode(doc); err != nil {
			return errors.WrapInternal(err, "formats", "Save", "gob encode failed")
		}
	default:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return errors.WrapInternal(err, "formats", "Save", "json encode failed")
		}
	}
	return f.Close()
}

// LoadStructured reads a structured document from path.
func LoadStructured(path string) (*Structured, error) {
	var doc Structured
	if err := load(path, &doc); err != nil {
		return nil, err
	}
	if doc.Type != TypeStructured {
		return nil, errors.WrapInvalid(ErrWrongLayout, "formats", "LoadStructured",
			fmt.Sprintf("file %s holds %q", path, doc.Type))
	}
	return &doc, nil
}

// LoadRaw reads a raw document from path.
func LoadRaw(path string) (*Raw, error) {
	var doc Raw
	if err := load(path, &doc); err != nil {
		return nil, err
	}
	if doc.Type != TypeRaw {
		return nil, errors.WrapInvalid(ErrWrongLayout, "formats", "LoadRaw",
			fmt.Sprintf("file %s holds %q", path, doc.Type))
	}
	return &doc, nil
}

func load(path string, doc any) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WrapInvalid(err, "formats", "load", "open failed")
	}
	defer f.Close()

	switch EncodingForPath(path) {
	case EncodingGob:
		if err := gob.NewDecoder(f).Decode(doc); err != nil {
			return errors.WrapInvalid(err, "formats", "load", "gob decode failed")
		}
	default:
		if err := json.NewDecoder(f).Decode(doc); err != nil {
			return errors.WrapInvalid(err, "formats", "load", "json decode failed")
		}
	}
	return nil
}
