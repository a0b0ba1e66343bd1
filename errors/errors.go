// Package errors provides standardized error handling patterns for ChronoSynth
// components. It includes error classification, the standard error variables for
// the keyframe/timeline error taxonomy, and helper functions for consistent
// error wrapping across the system.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorInvalid represents errors caused by bad user input: malformed
	// keyframe expressions, unknown fields, out-of-range parameters.
	ErrorInvalid ErrorClass = iota
	// ErrorInternal represents internal-consistency violations that indicate
	// a bug in the resolver rather than bad input.
	ErrorInternal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Standard error variables for the generation error taxonomy
var (
	// Expression errors
	ErrMalformedTimeExpression  = errors.New("malformed time expression")
	ErrMalformedValueExpression = errors.New("malformed value expression")
	ErrMalformedMaskExpression  = errors.New("malformed mask expression")
	ErrTimeOutOfRange           = errors.New("time out of range")

	// Field and registry errors
	ErrUnknownField             = errors.New("unknown field")
	ErrDuplicateTimeField       = errors.New("field repeated within timestamp group")
	ErrUnknownRelationshipField = errors.New("relationship references unknown field")
	ErrDuplicateShorthand       = errors.New("duplicate field shorthand")
	ErrInvalidRange             = errors.New("field min exceeds max")

	// Post-processing errors
	ErrDegenerateRange    = errors.New("degenerate field range")
	ErrInsufficientPoints = errors.New("insufficient points for downsampling")

	// Internal-invariant errors: a timeline resolver bug, never bad input
	ErrOverlappingSegment   = errors.New("overlapping timeline segments")
	ErrUnresolvedSegmentGap = errors.New("gap between timeline segments")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// ParseError reports a keyframe parse or resolve failure with enough context
// to point at the offending input: the index of the keyframe in the input
// list and the token that matched no grammar rule.
type ParseError struct {
	KeyframeIndex int
	Keyframe      string
	Token         string
	Err           error
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	if pe.Token != "" {
		return fmt.Sprintf("keyframe %d %q: token %q: %v",
			pe.KeyframeIndex, pe.Keyframe, pe.Token, pe.Err)
	}
	return fmt.Sprintf("keyframe %d %q: %v", pe.KeyframeIndex, pe.Keyframe, pe.Err)
}

// Unwrap returns the underlying error
func (pe *ParseError) Unwrap() error {
	return pe.Err
}

// NewParseError creates a ParseError for the keyframe at the given index
func NewParseError(index int, keyframe, token string, err error) *ParseError {
	return &ParseError{
		KeyframeIndex: index,
		Keyframe:      keyframe,
		Token:         token,
		Err:           err,
	}
}

// IsInvalid checks if an error is caused by bad user input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	if errors.Is(err, ErrMalformedTimeExpression) ||
		errors.Is(err, ErrMalformedValueExpression) ||
		errors.Is(err, ErrMalformedMaskExpression) ||
		errors.Is(err, ErrTimeOutOfRange) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrDuplicateTimeField) ||
		errors.Is(err, ErrUnknownRelationshipField) ||
		errors.Is(err, ErrDuplicateShorthand) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrDegenerateRange) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) {
		return true
	}

	return false
}

// IsInternal checks if an error indicates an internal-consistency violation.
// These should never be reachable from user input.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInternal
	}

	return errors.Is(err, ErrOverlappingSegment) ||
		errors.Is(err, ErrUnresolvedSegmentGap)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if IsInternal(err) {
		return ErrorInternal
	}
	return ErrorInvalid
}

// newClassified creates a new classified error.
// This is an internal helper - use WrapInvalid() or WrapInternal() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as invalid input with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInternal wraps an error as an internal-invariant violation with context
func WrapInternal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInternal, wrappedErr, component, method, wrappedErr.Error())
}
