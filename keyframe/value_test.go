package keyframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
)

var valueSpec = &field.Spec{Name: "gpu", Shorthand: "g", Min: 0, Max: 100}

func TestParseValue(t *testing.T) {
	tests := []struct {
		token    string
		expected ValueExpr
	}{
		{"60", ValueExpr{Kind: ValueAbsolute, Operand: 60}},
		{"0.5", ValueExpr{Kind: ValueAbsolute, Operand: 0.5}},
		{"min", ValueExpr{Kind: ValueMin}},
		{"max", ValueExpr{Kind: ValueMax}},
		{"+10", ValueExpr{Kind: ValueRelative, Op: '+', Operand: 10}},
		{"-5", ValueExpr{Kind: ValueRelative, Op: '-', Operand: 5}},
		{"*0.75", ValueExpr{Kind: ValueRelative, Op: '*', Operand: 0.75}},
		{"/2", ValueExpr{Kind: ValueRelative, Op: '/', Operand: 2}},
		{"^2", ValueExpr{Kind: ValueRelative, Op: '^', Operand: 2}},
	}

	for _, test := range tests {
		t.Run(test.token, func(t *testing.T) {
			got, err := ParseValue(test.token)
			require.NoError(t, err)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestParseValueMalformed(t *testing.T) {
	for _, token := range []string{"", "abc", "+", "^x", "6a", "minmax"} {
		t.Run(token, func(t *testing.T) {
			_, err := ParseValue(token)
			assert.ErrorIs(t, err, errors.ErrMalformedValueExpression)
		})
	}
}

func TestResolveAbsolute(t *testing.T) {
	v, _ := ParseValue("60")
	assert.Equal(t, 60.0, v.Resolve(valueSpec, 20, false))
}

func TestResolveMinMax(t *testing.T) {
	vMin, _ := ParseValue("min")
	vMax, _ := ParseValue("max")
	assert.Equal(t, 0.0, vMin.Resolve(valueSpec, 50, false))
	assert.Equal(t, 100.0, vMax.Resolve(valueSpec, 50, false))
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		token    string
		current  float64
		expected float64
	}{
		{"+10", 20, 30},
		{"-5", 20, 15},
		{"*2", 20, 40},
		{"/4", 20, 5},
		{"^2", 9, 81},
		{"/0", 20, 20}, // divide by zero keeps current
	}

	for _, test := range tests {
		t.Run(test.token, func(t *testing.T) {
			v, err := ParseValue(test.token)
			require.NoError(t, err)
			assert.InDelta(t, test.expected, v.Resolve(valueSpec, test.current, false), 1e-9)
		})
	}
}

func TestResolveNormalizedInput(t *testing.T) {
	// A bare 0.5 under input normalization is half of the field's range
	v, _ := ParseValue("0.5")
	assert.InDelta(t, 50.0, v.Resolve(valueSpec, 0, true), 1e-9)

	// Fractions clamp to [0,1] before denormalizing
	v, _ = ParseValue("2.5")
	assert.InDelta(t, 100.0, v.Resolve(valueSpec, 0, true), 1e-9)

	// Relative ops act in normalized space: current 50 is 0.5, +0.25 is 75
	v, _ = ParseValue("+0.25")
	assert.InDelta(t, 75.0, v.Resolve(valueSpec, 50, true), 1e-9)

	// Normalized results clamp before denormalizing
	v, _ = ParseValue("+5")
	assert.InDelta(t, 100.0, v.Resolve(valueSpec, 50, true), 1e-9)
}

func TestResolveNormalizedDegenerateRange(t *testing.T) {
	flat := &field.Spec{Name: "flat", Shorthand: "f", Min: 5, Max: 5}
	v, _ := ParseValue("+0.5")
	// Zero range pins relative math at min rather than dividing by zero
	assert.Equal(t, 5.0, v.Resolve(flat, 5, true))
}
