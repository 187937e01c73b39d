// Package signal turns an indicator frame into a per-bar BUY/SELL/HOLD
// sequence using configurable rules. Signals are intents: the simulator
// decides whether a fill actually happens.
package signal

import (
	"fmt"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/indicator"
)

// Condition is one boolean predicate over a frame at bar i. Eval returns
// fired=false, ok=false when any value it needs is still inside warm-up
// (including the previous bar for crossing conditions).
type Condition interface {
	Name() string
	Eval(f *indicator.Frame, i int) (fired, ok bool)
}

// CrossBelowLevel fires on the bar where the series transitions from
// at-or-above the level to below it. It does not re-fire while the series
// stays below.
type CrossBelowLevel struct {
	Series string
	Level  float64
}

func (c CrossBelowLevel) Name() string {
	return fmt.Sprintf("%s cross below %g", c.Series, c.Level)
}

func (c CrossBelowLevel) Eval(f *indicator.Frame, i int) (bool, bool) {
	cur, ok := f.Value(c.Series, i)
	if !ok {
		return false, false
	}
	prev, ok := f.Value(c.Series, i-1)
	if !ok {
		return false, false
	}
	return prev >= c.Level && cur < c.Level, true
}

// CrossAboveLevel fires on the bar where the series transitions from
// at-or-below the level to above it.
type CrossAboveLevel struct {
	Series string
	Level  float64
}

func (c CrossAboveLevel) Name() string {
	return fmt.Sprintf("%s cross above %g", c.Series, c.Level)
}

func (c CrossAboveLevel) Eval(f *indicator.Frame, i int) (bool, bool) {
	cur, ok := f.Value(c.Series, i)
	if !ok {
		return false, false
	}
	prev, ok := f.Value(c.Series, i-1)
	if !ok {
		return false, false
	}
	return prev <= c.Level && cur > c.Level, true
}

// CrossOver fires on the bar where series A transitions from at-or-below
// series B to above it (golden cross).
type CrossOver struct {
	A, B string
}

func (c CrossOver) Name() string {
	return fmt.Sprintf("%s cross over %s", c.A, c.B)
}

func (c CrossOver) Eval(f *indicator.Frame, i int) (bool, bool) {
	curA, okA := f.Value(c.A, i)
	curB, okB := f.Value(c.B, i)
	prevA, okPA := f.Value(c.A, i-1)
	prevB, okPB := f.Value(c.B, i-1)
	if !okA || !okB || !okPA || !okPB {
		return false, false
	}
	return prevA <= prevB && curA > curB, true
}

// CrossUnder fires on the bar where series A transitions from at-or-above
// series B to below it (death cross).
type CrossUnder struct {
	A, B string
}

func (c CrossUnder) Name() string {
	return fmt.Sprintf("%s cross under %s", c.A, c.B)
}

func (c CrossUnder) Eval(f *indicator.Frame, i int) (bool, bool) {
	curA, okA := f.Value(c.A, i)
	curB, okB := f.Value(c.B, i)
	prevA, okPA := f.Value(c.A, i-1)
	prevB, okPB := f.Value(c.B, i-1)
	if !okA || !okB || !okPA || !okPB {
		return false, false
	}
	return prevA >= prevB && curA < curB, true
}

// AboveLevel fires while the series sits above the level.
type AboveLevel struct {
	Series string
	Level  float64
}

func (c AboveLevel) Name() string {
	return fmt.Sprintf("%s above %g", c.Series, c.Level)
}

func (c AboveLevel) Eval(f *indicator.Frame, i int) (bool, bool) {
	cur, ok := f.Value(c.Series, i)
	if !ok {
		return false, false
	}
	return cur > c.Level, true
}

// BelowLevel fires while the series sits below the level.
type BelowLevel struct {
	Series string
	Level  float64
}

func (c BelowLevel) Name() string {
	return fmt.Sprintf("%s below %g", c.Series, c.Level)
}

func (c BelowLevel) Eval(f *indicator.Frame, i int) (bool, bool) {
	cur, ok := f.Value(c.Series, i)
	if !ok {
		return false, false
	}
	return cur < c.Level, true
}

// AboveSeries fires while series A sits above series B.
type AboveSeries struct {
	A, B string
}

func (c AboveSeries) Name() string {
	return fmt.Sprintf("%s above %s", c.A, c.B)
}

func (c AboveSeries) Eval(f *indicator.Frame, i int) (bool, bool) {
	curA, okA := f.Value(c.A, i)
	curB, okB := f.Value(c.B, i)
	if !okA || !okB {
		return false, false
	}
	return curA > curB, true
}

// Mode selects how a rule combines its conditions
type Mode string

const (
	ModeAll   Mode = "ALL"
	ModeAny   Mode = "ANY"
	ModeMixed Mode = "MIXED_EXPR"
)

// Rule combines conditions under a mode. MIXED_EXPR rules additionally
// carry a compiled boolean expression over condition indices.
type Rule struct {
	Mode       Mode
	Conditions []Condition
	Expr       *Expr
}

// NewRule validates the mode/condition/expression combination up front.
func NewRule(mode Mode, conditions []Condition, expr string) (*Rule, error) {
	if len(conditions) == 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rule needs at least one condition"))
	}

	r := &Rule{Mode: mode, Conditions: conditions}
	switch mode {
	case ModeAll, ModeAny:
		if expr != "" {
			return nil, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("expr is only valid with mode %s", ModeMixed))
		}
	case ModeMixed:
		compiled, err := ParseExpr(expr, len(conditions))
		if err != nil {
			return nil, err
		}
		r.Expr = compiled
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown rule mode %q", mode))
	}
	return r, nil
}

// Eval reports whether the rule fires at bar i. ok is false when any
// condition still sits inside indicator warm-up; the caller must HOLD.
func (r *Rule) Eval(f *indicator.Frame, i int) (fired, ok bool) {
	results := make([]bool, len(r.Conditions))
	for idx, c := range r.Conditions {
		v, defined := c.Eval(f, i)
		if !defined {
			return false, false
		}
		results[idx] = v
	}

	switch r.Mode {
	case ModeAll:
		for _, v := range results {
			if !v {
				return false, true
			}
		}
		return true, true
	case ModeAny:
		for _, v := range results {
			if v {
				return true, true
			}
		}
		return false, true
	default:
		return r.Expr.Eval(results), true
	}
}

// RuleSpec pairs independent entry and exit rules
type RuleSpec struct {
	Entry *Rule
	Exit  *Rule
}

// Generate produces one action per bar. Entry and exit rules are evaluated
// independently; a bar where neither fires, or where any referenced
// indicator is undefined, is HOLD.
func Generate(f *indicator.Frame, spec RuleSpec) ([]core.Action, error) {
	if spec.Entry == nil || spec.Exit == nil {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rule spec needs both entry and exit rules"))
	}
	if f == nil || f.Len() == 0 {
		return nil, core.ErrEmptyInput
	}

	actions := make([]core.Action, f.Len())
	for i := 0; i < f.Len(); i++ {
		actions[i] = core.ActionHold

		if fired, ok := spec.Entry.Eval(f, i); ok && fired {
			actions[i] = core.ActionBuy
			continue
		}
		if fired, ok := spec.Exit.Eval(f, i); ok && fired {
			actions[i] = core.ActionSell
		}
	}
	return actions, nil
}
