package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frameWith builds a frame directly from named series, one bar per value
func frameWith(series map[string][]float64) *indicator.Frame {
	n := 0
	for _, s := range series {
		n = len(s)
		break
	}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]core.Bar, n)
	for i := range bars {
		bars[i] = core.Bar{Open: 100, High: 101, Low: 99, Close: 100, Volume: 10, Time: t0.AddDate(0, 0, i)}
	}
	return &indicator.Frame{Bars: bars, Series: series}
}

func TestCrossBelowLevel(t *testing.T) {
	nan := math.NaN()
	f := frameWith(map[string][]float64{
		"rsi": {nan, 35, 29, 28, 31, 29},
	})
	c := CrossBelowLevel{Series: "rsi", Level: 30}

	_, ok := c.Eval(f, 1) // prev is warm-up
	assert.False(t, ok)

	fired, ok := c.Eval(f, 2) // 35 -> 29 crosses
	assert.True(t, ok)
	assert.True(t, fired)

	fired, ok = c.Eval(f, 3) // stays below, no re-fire
	assert.True(t, ok)
	assert.False(t, fired)

	fired, _ = c.Eval(f, 5) // 31 -> 29 crosses again
	assert.True(t, fired)
}

func TestCrossBelowLevel_FromExactBound(t *testing.T) {
	f := frameWith(map[string][]float64{"rsi": {30, 29}})
	c := CrossBelowLevel{Series: "rsi", Level: 30}

	fired, ok := c.Eval(f, 1) // prev == bound counts as above-or-equal
	assert.True(t, ok)
	assert.True(t, fired)
}

func TestCrossAboveLevel(t *testing.T) {
	f := frameWith(map[string][]float64{"rsi": {65, 72, 75, 68}})
	c := CrossAboveLevel{Series: "rsi", Level: 70}

	fired, _ := c.Eval(f, 1)
	assert.True(t, fired)
	fired, _ = c.Eval(f, 2) // already above
	assert.False(t, fired)
	fired, _ = c.Eval(f, 3)
	assert.False(t, fired)
}

func TestCrossOverAndUnder(t *testing.T) {
	f := frameWith(map[string][]float64{
		"ma_short": {1, 3, 4, 2},
		"ma_long":  {2, 2, 2, 3},
	})

	over := CrossOver{A: "ma_short", B: "ma_long"}
	under := CrossUnder{A: "ma_short", B: "ma_long"}

	fired, _ := over.Eval(f, 1) // 1<=2 then 3>2
	assert.True(t, fired)
	fired, _ = over.Eval(f, 2) // still above, no re-fire
	assert.False(t, fired)

	fired, _ = under.Eval(f, 3) // 4>=2 then 2<3
	assert.True(t, fired)
}

func TestLevelAndSeriesConditions(t *testing.T) {
	f := frameWith(map[string][]float64{
		"rsi": {75, 65},
		"obv": {10, 5},
		"ma":  {7, 7},
	})

	fired, _ := AboveLevel{Series: "rsi", Level: 70}.Eval(f, 0)
	assert.True(t, fired)
	fired, _ = BelowLevel{Series: "rsi", Level: 70}.Eval(f, 1)
	assert.True(t, fired)
	fired, _ = AboveSeries{A: "obv", B: "ma"}.Eval(f, 0)
	assert.True(t, fired)
	fired, _ = AboveSeries{A: "obv", B: "ma"}.Eval(f, 1)
	assert.False(t, fired)
}

func TestNewRule_Validation(t *testing.T) {
	cond := AboveLevel{Series: "rsi", Level: 70}

	_, err := NewRule(ModeAll, nil, "")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "no conditions")

	_, err = NewRule(Mode("SOMETIMES"), []Condition{cond}, "")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "unknown mode")

	_, err = NewRule(ModeAll, []Condition{cond}, "c0")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "expr outside MIXED_EXPR")

	_, err = NewRule(ModeMixed, []Condition{cond}, "c1")
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "index out of range")

	r, err := NewRule(ModeMixed, []Condition{cond}, "not c0")
	require.NoError(t, err)
	assert.NotNil(t, r.Expr)
}

func TestRule_Modes(t *testing.T) {
	f := frameWith(map[string][]float64{
		"a": {10, 10},
		"b": {1, 1},
	})
	hi := AboveLevel{Series: "a", Level: 5} // true
	lo := AboveLevel{Series: "b", Level: 5} // false

	all, _ := NewRule(ModeAll, []Condition{hi, lo}, "")
	fired, ok := all.Eval(f, 0)
	assert.True(t, ok)
	assert.False(t, fired)

	any, _ := NewRule(ModeAny, []Condition{hi, lo}, "")
	fired, _ = any.Eval(f, 0)
	assert.True(t, fired)

	mixed, err := NewRule(ModeMixed, []Condition{hi, lo, hi}, "(c0 or c1) and c2")
	require.NoError(t, err)
	fired, _ = mixed.Eval(f, 0)
	assert.True(t, fired)

	mixed2, err := NewRule(ModeMixed, []Condition{lo, lo, hi}, "(c0 or c1) and c2")
	require.NoError(t, err)
	fired, _ = mixed2.Eval(f, 0)
	assert.False(t, fired)
}

func TestRule_UndefinedConditionHolds(t *testing.T) {
	nan := math.NaN()
	f := frameWith(map[string][]float64{
		"a": {10, 10},
		"b": {nan, 1},
	})
	r, _ := NewRule(ModeAny, []Condition{
		AboveLevel{Series: "a", Level: 5},
		AboveLevel{Series: "b", Level: 5},
	}, "")

	// Even though c0 alone would fire, an undefined condition forces HOLD.
	_, ok := r.Eval(f, 0)
	assert.False(t, ok)

	fired, ok := r.Eval(f, 1)
	assert.True(t, ok)
	assert.True(t, fired)
}

func TestGenerate(t *testing.T) {
	nan := math.NaN()
	f := frameWith(map[string][]float64{
		"rsi": {nan, 35, 28, 29, 72, 65},
	})
	spec, err := BuildSpec(
		RuleConfig{Mode: "ALL", Conditions: []ConditionSpec{{Type: "cross_below", Series: "rsi", Level: 30}}},
		RuleConfig{Mode: "ALL", Conditions: []ConditionSpec{{Type: "cross_above", Series: "rsi", Level: 70}}},
	)
	require.NoError(t, err)

	actions, err := Generate(f, spec)
	require.NoError(t, err)
	require.Len(t, actions, 6)

	want := []core.Action{
		core.ActionHold, // warm-up
		core.ActionHold, // prev warm-up
		core.ActionBuy,  // 35 -> 28
		core.ActionHold,
		core.ActionSell, // 29 -> 72
		core.ActionHold,
	}
	assert.Equal(t, want, actions)
}

func TestGenerate_EntryWinsOverExit(t *testing.T) {
	// A single bar where both rules fire resolves to BUY; the simulator
	// only honors what its position state allows anyway.
	f := frameWith(map[string][]float64{"x": {5, 5}})
	always := AboveLevel{Series: "x", Level: 0}
	entry, _ := NewRule(ModeAll, []Condition{always}, "")
	exit, _ := NewRule(ModeAll, []Condition{always}, "")

	actions, err := Generate(f, RuleSpec{Entry: entry, Exit: exit})
	require.NoError(t, err)
	assert.Equal(t, core.ActionBuy, actions[0])
}

func TestGenerate_Errors(t *testing.T) {
	f := frameWith(map[string][]float64{"x": {1}})
	r, _ := NewRule(ModeAll, []Condition{AboveLevel{Series: "x"}}, "")

	_, err := Generate(f, RuleSpec{Entry: r})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = Generate(&indicator.Frame{}, RuleSpec{Entry: r, Exit: r})
	assert.True(t, errors.Is(err, core.ErrEmptyInput))
}

func TestBuildCondition_Errors(t *testing.T) {
	_, err := BuildCondition(ConditionSpec{Type: "sideways", Series: "rsi"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = BuildCondition(ConditionSpec{Type: "cross_over", Series: "obv"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "missing second series")

	_, err = BuildCondition(ConditionSpec{Type: "above"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "missing series")
}
