package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdreid/chronosynth/errors"
	"github.com/chrisdreid/chronosynth/field"
	"github.com/chrisdreid/chronosynth/keyframe"
)

func testRegistry(t *testing.T) *field.Registry {
	t.Helper()
	r := field.NewRegistry()
	require.NoError(t, r.Add(field.Spec{Name: "gpu", Shorthand: "g", Min: 0, Max: 100}))
	require.NoError(t, r.Add(field.Spec{Name: "cpu", Shorthand: "c", Min: 0, Max: 100}))
	require.NoError(t, r.Add(field.Spec{Name: "ram", Shorthand: "r", Min: 0, Max: 32}))
	return r
}

func resolve(t *testing.T, total float64, exprs []string, opts ...Option) *Timeline {
	t.Helper()
	reg := testRegistry(t)
	p := keyframe.NewParser(reg, total)
	events, err := p.ParseAll(exprs)
	require.NoError(t, err)
	tl, err := NewResolver(reg, total, opts...).Resolve(events)
	require.NoError(t, err)
	return tl
}

func TestResolveEmptyInput(t *testing.T) {
	tl := resolve(t, 60, nil)

	for _, name := range tl.Fields() {
		segs := tl.Segments(name)
		require.Len(t, segs, 1)
		assert.Equal(t, 0.0, segs[0].Start)
		assert.True(t, math.IsInf(segs[0].End, 1))
		assert.True(t, segs[0].Flat())
	}
	// fields start at their minimum
	assert.Equal(t, 0.0, tl.Segments("gpu")[0].StartValue)
}

func TestResolveSingleKeyframe(t *testing.T) {
	tl := resolve(t, 60, []string{"g60@30s"})

	segs := tl.Segments("gpu")
	require.Len(t, segs, 2)

	assert.Equal(t, 0.0, segs[0].Start)
	assert.Equal(t, 30.0, segs[0].End)
	assert.Equal(t, 0.0, segs[0].StartValue)
	assert.Equal(t, 60.0, segs[0].EndValue)
	assert.Equal(t, field.TransitionLinear, segs[0].Transition)

	// trailing infinite hold at the last value
	assert.Equal(t, 30.0, segs[1].Start)
	assert.True(t, math.IsInf(segs[1].End, 1))
	assert.Equal(t, 60.0, segs[1].StartValue)
	assert.Equal(t, 60.0, segs[1].EndValue)
}

func TestResolveSegmentChaining(t *testing.T) {
	tl := resolve(t, 120, []string{"g20@10s", "g80@40s", "g50@60s"})

	segs := tl.Segments("gpu")
	require.Len(t, segs, 4)
	assert.Equal(t, 20.0, segs[1].StartValue)
	assert.Equal(t, 80.0, segs[1].EndValue)
	assert.Equal(t, 80.0, segs[2].StartValue)
	assert.Equal(t, 50.0, segs[2].EndValue)
	assert.Equal(t, 60.0, segs[2].End)
}

func TestResolveRelativeValuesChain(t *testing.T) {
	tl := resolve(t, 120, []string{"g40@10s", "g+20@20s", "g*2@30s"})

	segs := tl.Segments("gpu")
	require.Len(t, segs, 4)
	assert.Equal(t, 60.0, segs[1].EndValue)
	// relative ops clamp to the field range
	assert.Equal(t, 100.0, segs[2].EndValue)
}

func TestResolveDefaultTransitionInheritance(t *testing.T) {
	tl := resolve(t, 120, []string{"g~", "g20@10s", "g80@20s|", "g40@30s"})

	segs := tl.Segments("gpu")
	require.Len(t, segs, 4)

	// the default set by "g~" applies where no per-event marker appears
	assert.Equal(t, field.TransitionSmooth, segs[0].Transition)
	// the per-event "|" applies only to the segment ending at its event
	assert.Equal(t, field.TransitionStep, segs[1].Transition)
	assert.Equal(t, field.TransitionSmooth, segs[2].Transition)
}

func TestResolvePulseReturn(t *testing.T) {
	tl := resolve(t, 120, []string{"c20@10s", "c80@20s^"})

	segs := tl.Segments("cpu")
	require.Len(t, segs, 3)

	assert.Equal(t, 20.0, segs[1].StartValue)
	assert.Equal(t, 80.0, segs[1].EndValue)

	// the trailing segment is a step from the peak back to the pre-event
	// value: exactly the event time reads 80, anything after reads 20
	tail := segs[2]
	assert.Equal(t, 20.0, tail.Start)
	assert.True(t, math.IsInf(tail.End, 1))
	assert.Equal(t, field.TransitionStep, tail.Transition)
	assert.Equal(t, 80.0, tail.StartValue)
	assert.Equal(t, 20.0, tail.EndValue)
}

func TestResolvePulseOffsetReturn(t *testing.T) {
	tl := resolve(t, 120, []string{"c20@10s", "c80@20s^+10"})

	segs := tl.Segments("cpu")
	tail := segs[len(segs)-1]
	assert.Equal(t, 30.0, tail.EndValue)
}

func TestResolvePulseFollowedByEvent(t *testing.T) {
	tl := resolve(t, 120, []string{"c20@10s", "c80@20s^", "c50@40s"})

	segs := tl.Segments("cpu")
	require.Len(t, segs, 4)

	// after the pulse the next transition starts from the return value
	assert.Equal(t, 20.0, segs[2].Start)
	assert.Equal(t, 40.0, segs[2].End)
	assert.Equal(t, 20.0, segs[2].StartValue)
	assert.Equal(t, 50.0, segs[2].EndValue)
}

func TestResolveTwoStagePulse(t *testing.T) {
	tl := resolve(t, 120, []string{"g50@30s^75,55:5s"})

	segs := tl.Segments("gpu")
	require.Len(t, segs, 3)

	// spike to the peak, transition down to the return value over 5s
	ret := segs[1]
	assert.Equal(t, 30.0, ret.Start)
	assert.Equal(t, 35.0, ret.End)
	assert.Equal(t, 75.0, ret.StartValue)
	assert.Equal(t, 55.0, ret.EndValue)

	assert.Equal(t, 55.0, segs[2].StartValue)
	assert.True(t, math.IsInf(segs[2].End, 1))
}

func TestResolveDurationWindow(t *testing.T) {
	tl := resolve(t, 600, []string{"g30@60s", "g90@120s:30s"})

	segs := tl.Segments("gpu")
	require.Len(t, segs, 4)

	// gap before an explicit window holds the previous value
	assert.Equal(t, 60.0, segs[1].Start)
	assert.Equal(t, 120.0, segs[1].End)
	assert.True(t, segs[1].Flat())
	assert.Equal(t, 30.0, segs[1].StartValue)

	assert.Equal(t, 120.0, segs[2].Start)
	assert.Equal(t, 150.0, segs[2].End)
	assert.Equal(t, 90.0, segs[2].EndValue)
}

func TestResolveDurationWithHold(t *testing.T) {
	tl := resolve(t, 600, []string{"g90@60s:10s_20s"})

	segs := tl.Segments("gpu")
	require.Len(t, segs, 4)
	assert.Equal(t, 70.0, segs[1].End)
	// the hold suffix pins the value before the trailing hold takes over
	assert.Equal(t, 70.0, segs[2].Start)
	assert.Equal(t, 90.0, segs[2].End)
	assert.True(t, segs[2].Flat())
	assert.Equal(t, 90.0, segs[2].StartValue)
}

func TestResolvePowAndNoiseOverrides(t *testing.T) {
	tl := resolve(t, 120, []string{"g80@30s(pow=3.5,n=0.2)"})

	segs := tl.Segments("gpu")
	assert.Equal(t, 3.5, segs[0].Pow)
	assert.Equal(t, 0.2, segs[0].Noise)
	// segments not produced by the event carry no override
	assert.Equal(t, defaultPow, segs[1].Pow)
}

func TestResolveRelationshipSyntheticEvent(t *testing.T) {
	tl := resolve(t, 120, []string{"g80@30s(c*0.75)"})

	segs := tl.Segments("cpu")
	require.Len(t, segs, 2)

	// the target field holds until the shared timestamp, then steps
	assert.Equal(t, 30.0, segs[0].End)
	assert.True(t, segs[0].Flat())
	assert.Equal(t, 0.0, segs[0].StartValue)
	assert.Equal(t, 30.0, segs[1].Start)
	assert.Equal(t, 60.0, segs[1].StartValue)
	assert.Equal(t, 60.0, segs[1].EndValue)
}

func TestResolveRelationshipClampsToTargetRange(t *testing.T) {
	tl := resolve(t, 120, []string{"g80@30s(r*0.75)"})

	segs := tl.Segments("ram")
	assert.Equal(t, 32.0, segs[len(segs)-1].EndValue)
}

func TestResolveNormalizedInputRelationship(t *testing.T) {
	tl := resolve(t, 120, []string{"g0.5@30s(r*0.5)"}, WithNormalizedInput())

	// gpu resolves to 50 (half of 0..100); the relationship halves the
	// fraction and maps it into ram's 0..32 range
	gpu := tl.Segments("gpu")
	assert.Equal(t, 50.0, gpu[0].EndValue)
	ram := tl.Segments("ram")
	assert.Equal(t, 8.0, ram[len(ram)-1].EndValue)
}

func TestResolveInitialValues(t *testing.T) {
	tl := resolve(t, 120, []string{"g80@30s"}, WithInitialValues(map[string]float64{
		"gpu": 40,
		"cpu": 25,
	}))

	assert.Equal(t, 40.0, tl.Segments("gpu")[0].StartValue)
	assert.Equal(t, 25.0, tl.Segments("cpu")[0].StartValue)
}

func TestResolveOverlapPushedForward(t *testing.T) {
	// the second event's time falls inside the first event's window, so
	// it takes effect at the window's end instead of overlapping it
	tl := resolve(t, 600, []string{"g50@10s:20s", "g90@20s"})

	segs := tl.Segments("gpu")
	for i := 1; i < len(segs); i++ {
		assert.Equal(t, segs[i-1].End, segs[i].Start)
	}
	last := segs[len(segs)-1]
	assert.Equal(t, 90.0, last.EndValue)
}

func TestResolveSameTimestampOrdering(t *testing.T) {
	tl := resolve(t, 120, []string{"g30@10s", "g70@10s"})

	segs := tl.Segments("gpu")
	// later appearance wins at the shared timestamp
	last := segs[len(segs)-1]
	assert.Equal(t, 70.0, last.StartValue)
	assert.Equal(t, 70.0, last.EndValue)
}

func TestResolveCoverageInvariant(t *testing.T) {
	tl := resolve(t, 600, []string{
		"g20@10s", "g80@40s^", "g50@60s:5s_5s",
		"c90@0", "c10@300s~",
		"r16@1m(c/2)",
	})

	for _, name := range tl.Fields() {
		segs := tl.Segments(name)
		require.NotEmpty(t, segs)
		assert.Equal(t, 0.0, segs[0].Start)
		for i := 1; i < len(segs); i++ {
			assert.Equal(t, segs[i-1].End, segs[i].Start, "field %s segment %d", name, i)
			assert.Less(t, segs[i].Start, segs[i].End)
		}
		assert.True(t, math.IsInf(segs[len(segs)-1].End, 1))
	}
}

func TestResolveRejectsUnknownRelationshipTarget(t *testing.T) {
	reg := testRegistry(t)
	events := []keyframe.Event{{
		Field:     "gpu",
		Shorthand: "g",
		HasTime:   true,
		Time:      10,
		HasValue:  true,
		Value:     keyframe.ValueExpr{Kind: keyframe.ValueAbsolute, Operand: 50},
		Duration:  -1,
		Hold:      -1,
		Relationships: []keyframe.Relationship{
			{Field: "disk", Op: '*', Operand: 0.5},
		},
	}}

	_, err := NewResolver(reg, 60).Resolve(events)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownRelationshipField)
}
