package signal

import (
	"fmt"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// ConditionSpec is the declarative form of one condition, as it appears in
// the configuration file.
type ConditionSpec struct {
	Type   string  `mapstructure:"type"`   // cross_below, cross_above, cross_over, cross_under, above, below, above_series
	Series string  `mapstructure:"series"` // primary series name
	Other  string  `mapstructure:"other"`  // second series for two-series conditions
	Level  float64 `mapstructure:"level"`  // bound for level conditions
}

// RuleConfig is the declarative form of one rule
type RuleConfig struct {
	Mode       string          `mapstructure:"mode"` // ALL, ANY, MIXED_EXPR
	Conditions []ConditionSpec `mapstructure:"conditions"`
	Expr       string          `mapstructure:"expr"`
}

// BuildCondition constructs a condition from its spec, failing fast on
// unknown types or missing fields.
func BuildCondition(spec ConditionSpec) (Condition, error) {
	if spec.Series == "" {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("condition %q needs a series", spec.Type))
	}

	switch spec.Type {
	case "cross_below":
		return CrossBelowLevel{Series: spec.Series, Level: spec.Level}, nil
	case "cross_above":
		return CrossAboveLevel{Series: spec.Series, Level: spec.Level}, nil
	case "above":
		return AboveLevel{Series: spec.Series, Level: spec.Level}, nil
	case "below":
		return BelowLevel{Series: spec.Series, Level: spec.Level}, nil
	case "cross_over", "cross_under", "above_series":
		if spec.Other == "" {
			return nil, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("condition %q needs a second series", spec.Type))
		}
		switch spec.Type {
		case "cross_over":
			return CrossOver{A: spec.Series, B: spec.Other}, nil
		case "cross_under":
			return CrossUnder{A: spec.Series, B: spec.Other}, nil
		default:
			return AboveSeries{A: spec.Series, B: spec.Other}, nil
		}
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown condition type %q", spec.Type))
	}
}

// BuildRule constructs a rule from its declarative config
func BuildRule(cfg RuleConfig) (*Rule, error) {
	conditions := make([]Condition, 0, len(cfg.Conditions))
	for _, cs := range cfg.Conditions {
		c, err := BuildCondition(cs)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return NewRule(Mode(cfg.Mode), conditions, cfg.Expr)
}

// BuildSpec constructs the entry/exit rule pair
func BuildSpec(entry, exit RuleConfig) (RuleSpec, error) {
	e, err := BuildRule(entry)
	if err != nil {
		return RuleSpec{}, fmt.Errorf("entry rule: %w", err)
	}
	x, err := BuildRule(exit)
	if err != nil {
		return RuleSpec{}, fmt.Errorf("exit rule: %w", err)
	}
	return RuleSpec{Entry: e, Exit: x}, nil
}
