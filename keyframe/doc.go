// Package keyframe parses the keyframe DSL into normalized events.
//
// # Syntaxes
//
// Classic form, one field per string:
//
//	g60@30s              set g to 60 at 30 seconds
//	c^2@.5               square c's current value at 50% of the timeline
//	r-5@1m               reduce r by 5 at one minute
//	g+10@20s~            +10 with a smooth transition
//	g~                   set g's default transition to smooth (no segment)
//	g50@55s^             pulse: to 50, then back to the previous value
//	g50@55s^+10          pulse, returning to previous+10
//	c50@45s(pow=2,n=0.5) pow transition with a per-event noise override
//	rmin@.8(c*0.75)      r to min, and a relationship driving c
//
// At-sign form, one timestamp governing several field updates:
//
//	@20s;g80^            pulse on g at 20s
//	@30s;g-20;c-40       two fields at once
//	@30s;g50^75,55:5s    two-stage pulse: 50, spike 75, settle at 55 over 5s
//	@30s;g70|            step transition
//
// Both forms tokenize into the same Event shape, so the timeline resolver is
// syntax-agnostic. Mixed-format input lists are legal; appearance order is
// kept as the tie-break between same-timestamp events.
//
// # Time and value grammars
//
// Time tokens accept unit forms (30s, 5m, 2h, 1h30m45s), colon forms
// (H:MM[:SS]), a leading-dot fraction of the total duration (.5), bare
// seconds, and the literal "end". Value tokens accept absolute numerals,
// min/max range keywords, and relative operators (+ - * / ^) against the
// field's preceding value.
//
// Parsing is a hand-written tokenizer plus recursive descent per grammar, so
// malformed input reports the exact offending token and keyframe index.
package keyframe
