package signal

import (
	"fmt"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/indicator"
)

// PresetThresholds carries the tunable levels referenced by the built-in
// rule presets.
type PresetThresholds struct {
	RSILower float64
	RSIUpper float64
}

// Preset returns the entry/exit rule pair for a named built-in strategy.
// Each preset is only a rule configuration; the state machine underneath
// is shared.
//
//	rsi       RSI dips below the lower bound to enter, exceeds the upper
//	          bound to exit
//	macd      MACD line crossing its signal line, both ways
//	obv       OBV crossing its moving average, both ways
//	combined  (OBV cross up or MACD cross up) gated on RSI not overbought
//	          to enter; any of the mirrored conditions to exit
func Preset(name string, th PresetThresholds) (entry, exit RuleConfig, err error) {
	switch name {
	case "rsi":
		entry = RuleConfig{Mode: string(ModeAll), Conditions: []ConditionSpec{
			{Type: "cross_below", Series: indicator.SeriesRSI, Level: th.RSILower},
		}}
		exit = RuleConfig{Mode: string(ModeAll), Conditions: []ConditionSpec{
			{Type: "cross_above", Series: indicator.SeriesRSI, Level: th.RSIUpper},
		}}
	case "macd":
		entry = RuleConfig{Mode: string(ModeAll), Conditions: []ConditionSpec{
			{Type: "cross_over", Series: indicator.SeriesMACD, Other: indicator.SeriesMACDSignal},
		}}
		exit = RuleConfig{Mode: string(ModeAll), Conditions: []ConditionSpec{
			{Type: "cross_under", Series: indicator.SeriesMACD, Other: indicator.SeriesMACDSignal},
		}}
	case "obv":
		entry = RuleConfig{Mode: string(ModeAll), Conditions: []ConditionSpec{
			{Type: "cross_over", Series: indicator.SeriesOBV, Other: indicator.SeriesOBVMA},
		}}
		exit = RuleConfig{Mode: string(ModeAll), Conditions: []ConditionSpec{
			{Type: "cross_under", Series: indicator.SeriesOBV, Other: indicator.SeriesOBVMA},
		}}
	case "combined":
		entry = RuleConfig{
			Mode: string(ModeMixed),
			Conditions: []ConditionSpec{
				{Type: "cross_over", Series: indicator.SeriesOBV, Other: indicator.SeriesOBVMA},
				{Type: "cross_above", Series: indicator.SeriesMACDHist, Level: 0},
				{Type: "below", Series: indicator.SeriesRSI, Level: th.RSIUpper},
			},
			Expr: "(c0 or c1) and c2",
		}
		exit = RuleConfig{Mode: string(ModeAny), Conditions: []ConditionSpec{
			{Type: "cross_under", Series: indicator.SeriesOBV, Other: indicator.SeriesOBVMA},
			{Type: "cross_below", Series: indicator.SeriesMACDHist, Level: 0},
			{Type: "above", Series: indicator.SeriesRSI, Level: th.RSIUpper},
		}}
	default:
		return RuleConfig{}, RuleConfig{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown strategy preset %q", name))
	}
	return entry, exit, nil
}
