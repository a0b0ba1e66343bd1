package keyframe

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
)

// Parser tokenizes keyframe strings in either syntax into normalized events.
// Syntax is auto-detected by the leading character: '@' selects the at-sign
// form, anything else the classic form. Mixed-format input lists are legal;
// appearance order across the whole list is preserved as the tie-break for
// same-timestamp events.
type Parser struct {
	registry *field.Registry
	total    float64
}

// NewParser creates a parser against a field registry and total duration in
// seconds. Time tokens resolve against the total (fractions, "end", clamping).
func NewParser(registry *field.Registry, total float64) *Parser {
	return &Parser{registry: registry, total: total}
}

// syntaxError carries the offending token alongside the grammar error so
// ParseAll can build a ParseError with full context.
type syntaxError struct {
	Token string
	Err   error
}

func (se *syntaxError) Error() string { return se.Err.Error() }
func (se *syntaxError) Unwrap() error { return se.Err }

func tokenErr(token string, err error) error {
	return &syntaxError{Token: token, Err: err}
}

// ParseAll parses an ordered list of keyframe strings into a flat event list.
// The first malformed keyframe aborts parsing; the returned error is a
// *errors.ParseError naming the keyframe index and offending token.
func (p *Parser) ParseAll(keyframes []string) ([]Event, error) {
	var events []Event
	index := 0

	for i, kf := range keyframes {
		parsed, err := p.Parse(kf)
		if err != nil {
			var se *syntaxError
			token := ""
			if stderrors.As(err, &se) {
				token = se.Token
				err = se.Err
			}
			return nil, errors.NewParseError(i, kf, token, err)
		}
		for j := range parsed {
			parsed[j].Index = index
			index++
		}
		events = append(events, parsed...)
	}

	return events, nil
}

// Parse parses a single keyframe string. The at-sign form may yield several
// events (one per semicolon-separated field update).
func (p *Parser) Parse(s string) ([]Event, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, tokenErr("", errors.ErrMalformedValueExpression)
	}
	if s[0] == '@' {
		return p.parseAtSign(s)
	}
	ev, err := p.parseClassic(s)
	if err != nil {
		return nil, err
	}
	return []Event{ev}, nil
}

// parseClassic parses <shorthand><value>@<time><suffixes>(<options>)?
// where everything after the shorthand is optional: a bare "g~" only sets
// the field's default transition.
func (p *Parser) parseClassic(s string) (Event, error) {
	body, optsStr, err := splitOptions(s)
	if err != nil {
		return Event{}, err
	}

	if body == "" {
		return Event{}, tokenErr(s, errors.ErrMalformedValueExpression)
	}
	shorthand := body[:1]
	spec, ok := p.registry.ByShorthand(shorthand)
	if !ok {
		return Event{}, tokenErr(shorthand, errors.ErrUnknownField)
	}

	ev := Event{
		Field:     spec.Name,
		Shorthand: shorthand,
		Duration:  -1,
		Hold:      -1,
	}
	rest := body[1:]

	at := strings.IndexByte(rest, '@')
	if at < 0 {
		// No time part: only a default-transition marker is legal here
		if err := parseBareMarkers(&ev, rest); err != nil {
			return Event{}, err
		}
	} else {
		valueTok := rest[:at]
		if valueTok == "" {
			return Event{}, tokenErr(rest, errors.ErrMalformedValueExpression)
		}
		value, err := ParseValue(valueTok)
		if err != nil {
			// carry the shorthand with the value slice so the error
			// names the whole keyframe prefix
			return Event{}, tokenErr(shorthand+valueTok, err)
		}
		ev.HasValue = true
		ev.Value = value

		if err := parseTimeAndSuffixes(&ev, rest[at+1:], p.total); err != nil {
			return Event{}, err
		}
	}

	if optsStr != "" {
		if err := p.parseOptions(&ev, optsStr); err != nil {
			return Event{}, err
		}
	}

	return ev, nil
}

// parseAtSign parses @<time>;<field update>;<field update>...
// One timestamp governs every field update in the group.
func (p *Parser) parseAtSign(s string) ([]Event, error) {
	parts := strings.SplitN(s[1:], ";", 2)
	if len(parts) < 2 {
		return nil, tokenErr(s, errors.ErrMalformedTimeExpression)
	}

	timeTok := parts[0]
	t, err := ParseTime(timeTok, p.total)
	if err != nil {
		return nil, tokenErr(timeTok, err)
	}

	var events []Event
	seen := map[string]bool{}

	for _, channel := range strings.Split(parts[1], ";") {
		ev, err := p.parseChannel(channel, t)
		if err != nil {
			return nil, err
		}
		if ev.HasTime {
			if seen[ev.Field] {
				return nil, tokenErr(channel, errors.ErrDuplicateTimeField)
			}
			seen[ev.Field] = true
		}
		events = append(events, ev)
	}

	return events, nil
}

// parseChannel parses one at-sign field update: the classic grammar minus
// the @time prefix. Transition markers may precede or follow the value
// ("g~-40:3s" and "g50~" both parse).
func (p *Parser) parseChannel(channel string, t float64) (Event, error) {
	body, optsStr, err := splitOptions(channel)
	if err != nil {
		return Event{}, err
	}
	if body == "" {
		return Event{}, tokenErr(channel, errors.ErrMalformedValueExpression)
	}

	shorthand := body[:1]
	spec, ok := p.registry.ByShorthand(shorthand)
	if !ok {
		return Event{}, tokenErr(shorthand, errors.ErrUnknownField)
	}

	ev := Event{
		Field:     spec.Name,
		Shorthand: shorthand,
		HasTime:   true,
		Time:      t,
		Duration:  -1,
		Hold:      -1,
	}
	rest := body[1:]

	// Leading transition markers
	for rest != "" && (rest[0] == '~' || rest[0] == '|') {
		setMarkerTransition(&ev, rest[0])
		rest = rest[1:]
	}

	// Value token, if present
	if rest != "" && rest[0] != '^' && rest[0] != ':' && rest[0] != '_' {
		valueTok := scanValueToken(rest)
		if valueTok == "" {
			return Event{}, tokenErr(rest, errors.ErrMalformedValueExpression)
		}
		value, err := ParseValue(valueTok)
		if err != nil {
			return Event{}, tokenErr(shorthand+valueTok, err)
		}
		ev.HasValue = true
		ev.Value = value
		rest = rest[len(valueTok):]
	}

	if err := parseSuffixes(&ev, rest); err != nil {
		return Event{}, err
	}

	if optsStr != "" {
		if err := p.parseOptions(&ev, optsStr); err != nil {
			return Event{}, err
		}
	}

	// A markers-only channel degrades to a default-transition event
	if !ev.HasValue {
		if ev.HasTransition && ev.Post == nil && ev.Duration < 0 && ev.Hold < 0 {
			ev.HasTime = false
			return ev, nil
		}
		return Event{}, tokenErr(channel, errors.ErrMalformedValueExpression)
	}

	return ev, nil
}

// splitOptions strips a trailing (…) options list from a keyframe body
func splitOptions(s string) (body, opts string, err error) {
	if !strings.HasSuffix(s, ")") {
		if strings.ContainsRune(s, '(') {
			return "", "", tokenErr(s, errors.ErrMalformedValueExpression)
		}
		return s, "", nil
	}
	idx := strings.IndexByte(s, '(')
	if idx < 0 {
		return "", "", tokenErr(s, errors.ErrMalformedValueExpression)
	}
	return s[:idx], s[idx+1 : len(s)-1], nil
}

// parseBareMarkers handles the timeless classic form ("g~", "g|")
func parseBareMarkers(ev *Event, rest string) error {
	if rest == "" {
		return tokenErr(ev.Shorthand, errors.ErrMalformedValueExpression)
	}
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '~', '|':
			setMarkerTransition(ev, rest[i])
		default:
			return tokenErr(rest, errors.ErrMalformedValueExpression)
		}
	}
	return nil
}

// parseTimeAndSuffixes splits the post-@ tail into the time token and the
// marker/suffix stream
func parseTimeAndSuffixes(ev *Event, tail string, total float64) error {
	timeTok, suffixes := splitTimeTail(tail)

	t, err := ParseTime(timeTok, total)
	if err != nil {
		return tokenErr(timeTok, err)
	}
	ev.HasTime = true
	ev.Time = t

	return parseSuffixes(ev, suffixes)
}

// splitTimeTail separates the time token from trailing markers. A ':' is
// part of the time token (colon form "1:30") unless the token after it
// carries a unit letter, which marks a duration suffix (":5s").
func splitTimeTail(tail string) (timeTok, suffixes string) {
	end := len(tail)
	if i := strings.IndexAny(tail, "~|^_"); i >= 0 {
		end = i
	}
	seg := tail[:end]
	for i := 0; i < len(seg); i++ {
		if seg[i] == ':' {
			tok := scanDurationToken(seg[i+1:])
			if strings.ContainsAny(tok, "hms") {
				return tail[:i], tail[i:]
			}
		}
	}
	return seg, tail[end:]
}

// parseSuffixes consumes the marker stream after a time or value token:
// transition markers (~, |), duration/hold (:Ds_Hs) and post-behavior (^...).
func parseSuffixes(ev *Event, s string) error {
	for s != "" {
		switch s[0] {
		case '~', '|':
			setMarkerTransition(ev, s[0])
			s = s[1:]
		case ':':
			tok := scanDurationToken(s[1:])
			if tok == "" {
				return tokenErr(s, errors.ErrMalformedTimeExpression)
			}
			d, err := ParseDuration(tok)
			if err != nil {
				return tokenErr(tok, err)
			}
			ev.Duration = d
			s = s[1+len(tok):]
		case '_':
			tok := scanDurationToken(s[1:])
			if tok == "" {
				return tokenErr(s, errors.ErrMalformedTimeExpression)
			}
			h, err := ParseDuration(tok)
			if err != nil {
				return tokenErr(tok, err)
			}
			ev.Hold = h
			s = s[1+len(tok):]
		case '^':
			consumed, err := parsePost(ev, s[1:])
			if err != nil {
				return err
			}
			s = s[1+consumed:]
		default:
			return tokenErr(s, errors.ErrMalformedValueExpression)
		}
	}
	return nil
}

// parsePost parses the pulse marker body after '^'. Returns the number of
// bytes consumed from s.
//
// Forms: "" (plain return), "+10"/"-5"/"*2"//"2" (offset return),
// "75,55:5s" (two-stage: spike to 75, then to 55 over 5s).
func parsePost(ev *Event, s string) (int, error) {
	post := &PostBehavior{Kind: PostReturn}
	ev.Post = post

	if s == "" || s[0] == ':' || s[0] == '_' || s[0] == '~' || s[0] == '|' {
		return 0, nil
	}

	if s[0] == '+' || s[0] == '-' || s[0] == '*' || s[0] == '/' {
		numTok := scanNumberToken(s[1:])
		if numTok == "" {
			return 0, tokenErr("^"+s, errors.ErrMalformedValueExpression)
		}
		offset, err := strconv.ParseFloat(numTok, 64)
		if err != nil {
			return 0, tokenErr(numTok, errors.ErrMalformedValueExpression)
		}
		post.HasOffset = true
		post.OffsetOp = s[0]
		post.Offset = offset
		return 1 + len(numTok), nil
	}

	// Two-stage: peak,return:duration
	peakTok := scanNumberToken(s)
	if peakTok == "" {
		return 0, tokenErr("^"+s, errors.ErrMalformedValueExpression)
	}
	rest := s[len(peakTok):]
	if rest == "" || rest[0] != ',' {
		return 0, tokenErr("^"+s, errors.ErrMalformedValueExpression)
	}
	returnTok := scanNumberToken(rest[1:])
	if returnTok == "" {
		return 0, tokenErr("^"+s, errors.ErrMalformedValueExpression)
	}
	rest = rest[1+len(returnTok):]
	if rest == "" || rest[0] != ':' {
		return 0, tokenErr("^"+s, errors.ErrMalformedValueExpression)
	}
	durTok := scanDurationToken(rest[1:])
	if durTok == "" {
		return 0, tokenErr("^"+s, errors.ErrMalformedTimeExpression)
	}

	peak, err := strconv.ParseFloat(peakTok, 64)
	if err != nil {
		return 0, tokenErr(peakTok, errors.ErrMalformedValueExpression)
	}
	ret, err := strconv.ParseFloat(returnTok, 64)
	if err != nil {
		return 0, tokenErr(returnTok, errors.ErrMalformedValueExpression)
	}
	dur, err := ParseDuration(durTok)
	if err != nil {
		return 0, tokenErr(durTok, err)
	}

	post.Kind = PostTwoStage
	post.Peak = peak
	post.Return = ret
	post.ReturnDur = dur

	consumed := len(peakTok) + 1 + len(returnTok) + 1 + len(durTok)
	return consumed, nil
}

// parseOptions parses the parenthesized options list: key=value pairs
// (pow=K, n=X), the bare "sin" transition selector, and relationship
// sub-expressions ("c*0.75").
func (p *Parser) parseOptions(ev *Event, optsStr string) error {
	for _, param := range strings.Split(optsStr, ",") {
		param = strings.TrimSpace(param)
		if param == "" {
			continue
		}

		if key, value, found := strings.Cut(param, "="); found {
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			switch key {
			case "pow":
				exp, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return tokenErr(param, errors.ErrMalformedValueExpression)
				}
				ev.HasTransition = true
				ev.Transition = field.TransitionPow
				ev.Options.Pow = exp
				ev.Options.PowSet = true
			case "n":
				n, err := strconv.ParseFloat(value, 64)
				if err != nil || n < 0 {
					return tokenErr(param, errors.ErrMalformedValueExpression)
				}
				ev.Options.Noise = n
				ev.Options.NoiseSet = true
			default:
				return tokenErr(param, errors.ErrMalformedValueExpression)
			}
			continue
		}

		if param == "sin" {
			ev.HasTransition = true
			ev.Transition = field.TransitionSin
			continue
		}
		if param == "pow" {
			ev.HasTransition = true
			ev.Transition = field.TransitionPow
			continue
		}

		rel, err := p.parseRelationship(param)
		if err != nil {
			return err
		}
		ev.Relationships = append(ev.Relationships, rel)
	}
	return nil
}

// parseRelationship parses "<shorthand><op><number>"
func (p *Parser) parseRelationship(param string) (Relationship, error) {
	if len(param) < 3 {
		return Relationship{}, tokenErr(param, errors.ErrMalformedValueExpression)
	}

	shorthand := param[:1]
	op := param[1]
	switch op {
	case '*', '+', '-', '/', '^':
	default:
		return Relationship{}, tokenErr(param, errors.ErrMalformedValueExpression)
	}

	operand, err := strconv.ParseFloat(param[2:], 64)
	if err != nil {
		return Relationship{}, tokenErr(param, errors.ErrMalformedValueExpression)
	}

	spec, ok := p.registry.ByShorthand(shorthand)
	if !ok {
		return Relationship{}, tokenErr(shorthand, errors.ErrUnknownRelationshipField)
	}

	return Relationship{Field: spec.Name, Op: op, Operand: operand}, nil
}

func setMarkerTransition(ev *Event, marker byte) {
	ev.HasTransition = true
	if marker == '~' {
		ev.Transition = field.TransitionSmooth
	} else {
		ev.Transition = field.TransitionStep
	}
}

// scanValueToken scans a leading value token: "min", "max", or a numeral
// with an optional relative-operator prefix.
func scanValueToken(s string) string {
	if strings.HasPrefix(s, "min") {
		return "min"
	}
	if strings.HasPrefix(s, "max") {
		return "max"
	}

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-' || s[i] == '*' || s[i] == '/') {
		i++
	}
	num := scanNumberToken(s[i:])
	if num == "" {
		return ""
	}
	return s[:i+len(num)]
}

// scanNumberToken scans a leading unsigned decimal numeral
func scanNumberToken(s string) string {
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	return s[:i]
}

// scanDurationToken scans a leading duration token (digits, dot, h/m/s units)
func scanDurationToken(s string) string {
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' ||
		s[i] == 'h' || s[i] == 'm' || s[i] == 's') {
		i++
	}
	return s[:i]
}
