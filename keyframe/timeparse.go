package keyframe

import (
	"strconv"
	"strings"

	"github.com/chrisdreid/chronosynth/errors"
)

// ParseTime resolves a time token into absolute seconds given the total
// timeline duration.
//
// Supported forms:
//
//	"end"       end of the timeline (total duration)
//	".5"        fraction of total duration (leading dot)
//	"30"        bare seconds
//	"30s"       seconds
//	"5m"        minutes
//	"2h"        hours
//	"1h30m45s"  combined units ("1h30" means 1h30m)
//	"1:30"      H:MM
//	"1:30:45"   H:MM:SS
//
// The result is clamped to the total duration; a negative result is
// ErrTimeOutOfRange.
func ParseTime(token string, total float64) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, errors.ErrMalformedTimeExpression
	}

	seconds, err := parseTimeToken(token, total)
	if err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, errors.ErrTimeOutOfRange
	}
	if seconds > total {
		seconds = total
	}
	return seconds, nil
}

// ParseDuration resolves a duration token (the :Ds and _Hs suffixes). Same
// unit grammar as ParseTime but without the fraction and "end" forms, and
// with no clamping against the timeline.
func ParseDuration(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == "end" || strings.HasPrefix(token, ".") {
		return 0, errors.ErrMalformedTimeExpression
	}
	seconds, err := parseTimeToken(token, 0)
	if err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, errors.ErrTimeOutOfRange
	}
	return seconds, nil
}

func parseTimeToken(token string, total float64) (float64, error) {
	if token == "end" {
		return total, nil
	}

	if strings.HasPrefix(token, ".") {
		frac, err := strconv.ParseFloat(token, 64)
		if err != nil || frac > 1 {
			return 0, errors.ErrMalformedTimeExpression
		}
		return frac * total, nil
	}

	if strings.Contains(token, ":") {
		return parseColonTime(token)
	}

	if strings.ContainsAny(token, "hms") {
		return parseUnitTime(token)
	}

	// Bare number: seconds
	seconds, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, errors.ErrMalformedTimeExpression
	}
	return seconds, nil
}

// parseColonTime handles H:MM and H:MM:SS
func parseColonTime(token string) (float64, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, errors.ErrMalformedTimeExpression
	}

	vals := make([]float64, len(parts))
	for i, p := range parts {
		if p == "" {
			return 0, errors.ErrMalformedTimeExpression
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, errors.ErrMalformedTimeExpression
		}
		vals[i] = v
	}

	if len(vals) == 2 {
		return (vals[0]*60 + vals[1]) * 60, nil
	}
	return vals[0]*3600 + vals[1]*60 + vals[2], nil
}

// parseUnitTime scans number/unit pairs: "1h30m45s", "30s", "1h30" (a bare
// trailing number after an hours part means minutes).
func parseUnitTime(token string) (float64, error) {
	var seconds float64
	seen := map[byte]bool{}
	lastUnit := byte(0)
	i := 0

	for i < len(token) {
		start := i
		for i < len(token) && (token[i] >= '0' && token[i] <= '9' || token[i] == '.') {
			i++
		}
		if start == i {
			return 0, errors.ErrMalformedTimeExpression
		}
		num, err := strconv.ParseFloat(token[start:i], 64)
		if err != nil {
			return 0, errors.ErrMalformedTimeExpression
		}

		var unit byte
		if i < len(token) {
			unit = token[i]
			i++
		} else {
			// Trailing bare number is minutes when it follows hours
			if lastUnit != 'h' {
				return 0, errors.ErrMalformedTimeExpression
			}
			unit = 'm'
		}

		switch unit {
		case 'h':
			seconds += num * 3600
		case 'm':
			seconds += num * 60
		case 's':
			seconds += num
		default:
			return 0, errors.ErrMalformedTimeExpression
		}
		if seen[unit] {
			return 0, errors.ErrMalformedTimeExpression
		}
		seen[unit] = true
		lastUnit = unit
	}

	return seconds, nil
}
