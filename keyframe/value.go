package keyframe

import (
	"math"
	"strconv"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
)

// ValueKind discriminates the value expression forms
type ValueKind int

// Value expression kinds
const (
	// ValueAbsolute is a plain numeral
	ValueAbsolute ValueKind = iota
	// ValueRelative applies an operator to the field's preceding value
	ValueRelative
	// ValueMin resolves to the field's range minimum
	ValueMin
	// ValueMax resolves to the field's range maximum
	ValueMax
)

// ValueExpr is an unresolved value expression. Relative expressions resolve
// against the field's value immediately preceding the event in time order,
// which the timeline resolver threads through the event walk.
type ValueExpr struct {
	Kind    ValueKind
	Op      byte // one of + - * / ^ for ValueRelative
	Operand float64
}

// ParseValue parses a value token into an unresolved expression.
// Grammar: "min" | "max" | [+-*/^]numeral | numeral.
func ParseValue(token string) (ValueExpr, error) {
	switch token {
	case "":
		return ValueExpr{}, errors.ErrMalformedValueExpression
	case "min":
		return ValueExpr{Kind: ValueMin}, nil
	case "max":
		return ValueExpr{Kind: ValueMax}, nil
	}

	switch token[0] {
	case '+', '-', '*', '/', '^':
		operand, err := strconv.ParseFloat(token[1:], 64)
		if err != nil {
			// "-5" style negatives are relative decrements in this grammar,
			// so any parse failure here is malformed input.
			return ValueExpr{}, errors.ErrMalformedValueExpression
		}
		return ValueExpr{Kind: ValueRelative, Op: token[0], Operand: operand}, nil
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return ValueExpr{}, errors.ErrMalformedValueExpression
	}
	return ValueExpr{Kind: ValueAbsolute, Operand: v}, nil
}

// Resolve turns the expression into an absolute value for the given field.
// current is the field's value immediately preceding the event.
//
// When normalizeInput is set, bare numerals are reinterpreted as [0,1]
// fractions of the field's range, and relative operators act in that
// normalized space (clamped to [0,1] before denormalizing).
func (v ValueExpr) Resolve(spec *field.Spec, current float64, normalizeInput bool) float64 {
	switch v.Kind {
	case ValueMin:
		return spec.Min
	case ValueMax:
		return spec.Max
	case ValueRelative:
		if normalizeInput {
			frac := 0.0
			if spec.Range() > 0 {
				frac = (current - spec.Min) / spec.Range()
			}
			frac = applyOp(frac, v.Op, v.Operand)
			frac = clamp01(frac)
			return spec.Min + frac*spec.Range()
		}
		return applyOp(current, v.Op, v.Operand)
	default: // ValueAbsolute
		if normalizeInput {
			frac := clamp01(v.Operand)
			return spec.Min + frac*spec.Range()
		}
		return v.Operand
	}
}

func applyOp(base float64, op byte, operand float64) float64 {
	switch op {
	case '+':
		return base + operand
	case '-':
		return base - operand
	case '*':
		return base * operand
	case '/':
		if operand == 0 {
			return base
		}
		return base / operand
	case '^':
		return math.Pow(base, operand)
	}
	return base
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
