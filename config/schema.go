package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/chrisdreid/chronosynth/errors"
)

// fieldsSchema constrains the shape of the "fields" section before it is
// decoded into field specs. Range and shorthand-uniqueness rules live in
// field.Spec.Validate; the schema only catches type and presence errors
// with a per-key error message.
const fieldsSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"required": ["shorthand", "min", "max"],
		"properties": {
			"shorthand":          {"type": "string", "minLength": 1, "maxLength": 1},
			"min":                {"type": "number"},
			"max":                {"type": "number"},
			"noise_amount":       {"type": "number", "minimum": 0},
			"default_transition": {"type": "string", "enum": ["linear", "smooth", "step", "sin", "pow"]},
			"color":              {"type": "string"},
			"unit":               {"type": "string"},
			"description":        {"type": "string"}
		},
		"additionalProperties": false
	}
}`

// validateFieldsSchema validates the raw fields section of a merged
// configuration map against fieldsSchema.
func validateFieldsSchema(raw map[string]any) error {
	fields, ok := raw["fields"]
	if !ok {
		return nil // absence is caught later by Config.Validate
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(fieldsSchema),
		gojsonschema.NewGoLoader(fields),
	)
	if err != nil {
		return errors.WrapInvalid(err, "Loader", "Load", "validate fields section")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Loader", "Load",
		"fields section: "+strings.Join(msgs, "; "))
}
