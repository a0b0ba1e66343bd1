package timeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
	"github.com/chrisdreid/chronosynth/keyframe"
)

const defaultPow = 2.0

// Resolver turns an ordered batch of parsed keyframe events into a Timeline.
// It walks events in (time, appearance) order, carrying per-field state:
// the last reached value, the time up to which segments have been emitted,
// and a pending tail describing how the value behaves until the next event.
type Resolver struct {
	registry       *field.Registry
	total          float64
	normalizeInput bool
	initial        map[string]float64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNormalizedInput makes bare value literals read as fractions of the
// field range instead of absolute values.
func WithNormalizedInput() Option {
	return func(r *Resolver) { r.normalizeInput = true }
}

// WithInitialValues seeds per-field starting values, replacing the default
// start at field minimum. Used when extending a previously generated series.
func WithInitialValues(initial map[string]float64) Option {
	return func(r *Resolver) { r.initial = initial }
}

// NewResolver creates a resolver for the given registry and total duration.
func NewResolver(registry *field.Registry, total float64, opts ...Option) *Resolver {
	r := &Resolver{registry: registry, total: total}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// tailKind describes the pending behavior of a field after its last
// emitted segment.
type tailKind int

const (
	// tailHold keeps the current value flat until the next event
	tailHold tailKind = iota
	// tailReturn is a pulse return: the peak value at the boundary
	// instant, the return value everywhere after
	tailReturn
)

// fieldState is the per-field walk state.
type fieldState struct {
	spec     *field.Spec
	cur      float64
	boundary float64
	tail     tailKind
	peak     float64 // tailReturn only
	noise    float64 // noise override carried by the pending tail, -1 none
	segs     []Segment
	defaults field.Transition
}

// queueItem wraps a parsed event or a synthetic relationship event. A
// synthetic item carries a pre-resolved value so it bypasses value-expression
// resolution (and in particular input normalization).
type queueItem struct {
	ev        keyframe.Event
	synthetic bool
	value     float64
}

// Resolve walks the events and produces a verified Timeline.
func (r *Resolver) Resolve(events []keyframe.Event) (*Timeline, error) {
	states := make(map[string]*fieldState, r.registry.Len())
	order := r.registry.Names()
	for _, name := range order {
		spec, _ := r.registry.Field(name)
		cur := spec.Min
		if v, ok := r.initial[name]; ok {
			cur = spec.Clamp(v)
		}
		states[name] = &fieldState{
			spec:     spec,
			cur:      cur,
			noise:    -1,
			defaults: spec.DefaultTransition,
		}
	}

	queue := make([]queueItem, 0, len(events))
	for _, ev := range events {
		queue = append(queue, queueItem{ev: ev})
	}
	sort.SliceStable(queue, func(i, j int) bool {
		ti, tj := itemTime(queue[i]), itemTime(queue[j])
		if ti != tj {
			return ti < tj
		}
		return queue[i].ev.Index < queue[j].ev.Index
	})

	for i := 0; i < len(queue); i++ {
		item := queue[i]
		st, ok := states[item.ev.Field]
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrUnknownField, "Resolver", "Resolve",
				fmt.Sprintf("field %q", item.ev.Field))
		}

		if !item.ev.HasTime && !item.synthetic {
			// default-transition event: updates the field default for
			// every segment resolved from here on
			if item.ev.HasTransition {
				st.defaults = item.ev.Transition
			}
			continue
		}

		synthetic, err := r.apply(st, item)
		if err != nil {
			return nil, err
		}
		if len(synthetic) > 0 {
			queue = insertAfter(queue, i, synthetic)
		}
	}

	tl := &Timeline{segments: make(map[string][]Segment, len(order)), order: order, total: r.total}
	for _, name := range order {
		st := states[name]
		closeTail(st, math.Inf(1))
		tl.segments[name] = st.segs
	}
	if err := tl.verify(); err != nil {
		return nil, err
	}
	return tl, nil
}

// apply consumes one timed event, emits its segments, and returns any
// synthetic relationship events it spawned.
func (r *Resolver) apply(st *fieldState, item queueItem) ([]queueItem, error) {
	ev := item.ev
	t := ev.Time
	if t < st.boundary {
		// a previous duration or hold ran past this event's time;
		// push it forward so segments stay non-overlapping
		t = st.boundary
	}

	var target float64
	if item.synthetic {
		target = st.spec.Clamp(item.value)
	} else if ev.HasValue {
		target = st.spec.Clamp(ev.Value.Resolve(st.spec, st.cur, r.normalizeInput))
	} else {
		target = st.cur
	}

	tr := st.defaults
	if item.synthetic {
		tr = field.TransitionStep
	} else if ev.HasTransition {
		tr = ev.Transition
	}
	pow := defaultPow
	if ev.Options.PowSet {
		pow = ev.Options.Pow
	}
	noise := -1.0
	if ev.Options.NoiseSet {
		noise = ev.Options.Noise
	}

	prev := st.cur

	if item.synthetic || ev.Duration >= 0 {
		// explicit transition window [t, t+D): the gap before it holds.
		// Synthetic relationship events are zero-length windows, so the
		// target field steps exactly at the shared timestamp.
		dur := 0.0
		if !item.synthetic {
			dur = ev.Duration
		}
		closeTail(st, t)
		st.emit(t, t+dur, prev, target, tr, pow, noise)
		st.boundary = t + dur
	} else {
		// transition spans from the previous boundary to the event time;
		// a pending pulse return collapses to its return value here
		st.tail = tailHold
		st.emit(st.boundary, t, st.cur, target, tr, pow, noise)
		st.boundary = t
	}
	st.cur = target
	st.tail = tailHold
	st.noise = noise

	hold := 0.0
	if !item.synthetic && ev.Hold >= 0 {
		hold = ev.Hold
	}

	if !item.synthetic && ev.Post != nil {
		r.applyPost(st, ev, target, prev, tr, pow, noise, hold)
	} else if hold > 0 {
		st.emit(st.boundary, st.boundary+hold, target, target, field.TransitionLinear, pow, noise)
		st.boundary += hold
	}

	if item.synthetic {
		return nil, nil
	}
	return r.synthesize(ev, target, st.spec)
}

// applyPost expands a post-behavior into hold and return segments.
func (r *Resolver) applyPost(st *fieldState, ev keyframe.Event, target, prev float64, tr field.Transition, pow, noise, hold float64) {
	post := ev.Post
	switch post.Kind {
	case keyframe.PostReturn:
		ret := prev
		if post.HasOffset {
			ret = st.spec.Clamp(applyRelOp(prev, post.OffsetOp, post.Offset))
		}
		if hold > 0 {
			st.emit(st.boundary, st.boundary+hold, target, target, field.TransitionLinear, pow, noise)
			st.boundary += hold
		}
		// zero-duration return: the peak survives only at the boundary
		// instant, carried by the pending tail
		st.cur = ret
		st.tail = tailReturn
		st.peak = target
		st.noise = noise

	case keyframe.PostTwoStage:
		peak := st.spec.Clamp(post.Peak)
		ret := st.spec.Clamp(post.Return)
		if hold > 0 {
			st.emit(st.boundary, st.boundary+hold, peak, peak, field.TransitionLinear, pow, noise)
			st.boundary += hold
		}
		if post.ReturnDur > 0 {
			st.emit(st.boundary, st.boundary+post.ReturnDur, peak, ret, tr, pow, noise)
			st.boundary += post.ReturnDur
		}
		st.cur = ret
		st.tail = tailHold
		st.noise = noise
	}
}

// synthesize builds step events for each relationship carried by the event.
func (r *Resolver) synthesize(ev keyframe.Event, target float64, spec *field.Spec) ([]queueItem, error) {
	if len(ev.Relationships) == 0 {
		return nil, nil
	}
	out := make([]queueItem, 0, len(ev.Relationships))
	for _, rel := range ev.Relationships {
		other, ok := r.registry.Field(rel.Field)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrUnknownRelationshipField, "Resolver", "Resolve",
				fmt.Sprintf("relationship target %q", rel.Field))
		}
		var v float64
		if r.normalizeInput {
			// relationship math runs in normalized space, then maps
			// into the target field's range
			frac := 0.0
			if spec.Range() > 0 {
				frac = (target - spec.Min) / spec.Range()
			}
			frac = applyRelOp(frac, rel.Op, rel.Operand)
			v = other.Min + frac*other.Range()
		} else {
			v = applyRelOp(target, rel.Op, rel.Operand)
		}
		out = append(out, queueItem{
			ev: keyframe.Event{
				Field:    rel.Field,
				HasTime:  true,
				Time:     ev.Time,
				Index:    ev.Index,
				Duration: -1,
				Hold:     -1,
			},
			synthetic: true,
			value:     v,
		})
	}
	return out, nil
}

// emit appends a segment, skipping zero or negative spans.
func (st *fieldState) emit(start, end, from, to float64, tr field.Transition, pow, noise float64) {
	if end <= start {
		return
	}
	st.segs = append(st.segs, Segment{
		Field:      st.spec.Name,
		Start:      start,
		End:        end,
		StartValue: from,
		EndValue:   to,
		Transition: tr,
		Pow:        pow,
		Noise:      noise,
	})
}

// closeTail materializes the pending tail as a segment ending at t.
func closeTail(st *fieldState, t float64) {
	if t <= st.boundary {
		st.tail = tailHold
		return
	}
	switch st.tail {
	case tailReturn:
		st.emit(st.boundary, t, st.peak, st.cur, field.TransitionStep, defaultPow, st.noise)
	default:
		st.emit(st.boundary, t, st.cur, st.cur, field.TransitionLinear, defaultPow, st.noise)
	}
	st.boundary = t
	st.tail = tailHold
}

func itemTime(it queueItem) float64 {
	if !it.ev.HasTime {
		return 0
	}
	return it.ev.Time
}

// insertAfter splices synthetic items into the queue at their timestamp,
// after the item at position i.
func insertAfter(queue []queueItem, i int, items []queueItem) []queueItem {
	t := itemTime(queue[i])
	j := i + 1
	for j < len(queue) && itemTime(queue[j]) <= t {
		j++
	}
	out := make([]queueItem, 0, len(queue)+len(items))
	out = append(out, queue[:j]...)
	out = append(out, items...)
	out = append(out, queue[j:]...)
	return out
}

func applyRelOp(base float64, op byte, operand float64) float64 {
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
	default:
		return operand
	}
}
