package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/edgelab-quant/edgelab/internal/core"
	"github.com/edgelab-quant/edgelab/internal/indicator"
	"github.com/edgelab-quant/edgelab/internal/signal"
	"github.com/edgelab-quant/edgelab/internal/sim"
)

const dateLayout = "2006-01-02"

type Config struct {
	Data       DataConfig      `mapstructure:"data"`
	Backtest   BacktestConfig  `mapstructure:"backtest"`
	Indicators IndicatorConfig `mapstructure:"indicators"`
	Rules      RulesConfig     `mapstructure:"rules"`
	Archive    ArchiveConfig   `mapstructure:"archive"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
}

type DataConfig struct {
	Provider string   `mapstructure:"provider"` // "binance" or "csv"
	Dir      string   `mapstructure:"dir"`      // local bar cache / csv location
	Symbols  []string `mapstructure:"symbols"`
	Interval string   `mapstructure:"interval"`
	Start    string   `mapstructure:"start"` // YYYY-MM-DD
	End      string   `mapstructure:"end"`
}

type BacktestConfig struct {
	InitialCapital float64            `mapstructure:"initial_capital"`
	CommissionRate float64            `mapstructure:"commission_rate"`
	SlippageRate   float64            `mapstructure:"slippage_rate"`
	Fraction       float64            `mapstructure:"fraction"`
	LotSize        float64            `mapstructure:"lot_size"`
	MinNotional    float64            `mapstructure:"min_notional"`
	DrawdownLimit  float64            `mapstructure:"drawdown_limit"`
	CooldownPeriod int                `mapstructure:"cooldown_period"`
	TrailingStop   TrailingStopConfig `mapstructure:"trailing_stop"`
}

type TrailingStopConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Multiplier float64 `mapstructure:"multiplier"`
}

type IndicatorConfig struct {
	RSIPeriod   int     `mapstructure:"rsi_period"`
	RSILower    float64 `mapstructure:"rsi_lower"`
	RSIUpper    float64 `mapstructure:"rsi_upper"`
	MACDFast    int     `mapstructure:"macd_fast"`
	MACDSlow    int     `mapstructure:"macd_slow"`
	MACDSignal  int     `mapstructure:"macd_signal"`
	ATRPeriod   int     `mapstructure:"atr_period"`
	OBVMAPeriod int     `mapstructure:"obv_ma_period"`
	MAShort     int     `mapstructure:"ma_short"`
	MALong      int     `mapstructure:"ma_long"`
}

type RulesConfig struct {
	Preset string            `mapstructure:"preset"` // named preset, or empty for explicit rules
	Entry  signal.RuleConfig `mapstructure:"entry"`
	Exit   signal.RuleConfig `mapstructure:"exit"`
}

type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // for localfs
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with the documented defaults
func Defaults() *Config {
	return &Config{
		Data: DataConfig{
			Provider: "binance",
			Dir:      "data",
			Interval: "1d",
		},
		Backtest: BacktestConfig{
			InitialCapital: 10000,
			CommissionRate: 0.001,
			SlippageRate:   0.0005,
			Fraction:       0.95,
			DrawdownLimit:  0.25,
			CooldownPeriod: 5,
			TrailingStop: TrailingStopConfig{
				Enabled:    true,
				Multiplier: 2.0,
			},
		},
		Indicators: IndicatorConfig{
			RSIPeriod:   14,
			RSILower:    30,
			RSIUpper:    70,
			MACDFast:    12,
			MACDSlow:    26,
			MACDSignal:  9,
			ATRPeriod:   14,
			OBVMAPeriod: 20,
			MAShort:     5,
			MALong:      20,
		},
		Rules: RulesConfig{
			Preset: "combined",
		},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "runs",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Validate checks the configuration for errors before any bar is processed.
func (c *Config) Validate() error {
	switch c.Data.Provider {
	case "binance", "csv":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data provider %q", c.Data.Provider))
	}
	if len(c.Data.Symbols) == 0 {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("at least one symbol required"))
	}
	if _, _, err := c.DateRange(); err != nil {
		return err
	}

	if err := c.SimConfig().Validate(); err != nil {
		return err
	}

	for name, period := range map[string]int{
		"rsi_period":    c.Indicators.RSIPeriod,
		"macd_fast":     c.Indicators.MACDFast,
		"macd_slow":     c.Indicators.MACDSlow,
		"macd_signal":   c.Indicators.MACDSignal,
		"atr_period":    c.Indicators.ATRPeriod,
		"obv_ma_period": c.Indicators.OBVMAPeriod,
		"ma_short":      c.Indicators.MAShort,
		"ma_long":       c.Indicators.MALong,
	} {
		if period <= 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("%s must be positive, got %d", name, period))
		}
	}

	// Rule construction performs its own fail-fast validation.
	if _, err := c.RuleSpec(); err != nil {
		return err
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs", "s3":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics.listen required when metrics are enabled"))
	}
	return nil
}

// DateRange parses the configured start/end dates
func (c *Config) DateRange() (start, end time.Time, err error) {
	if c.Data.Start == "" || c.Data.End == "" {
		return start, end, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("data.start and data.end are required"))
	}
	start, err = time.Parse(dateLayout, c.Data.Start)
	if err != nil {
		return start, end, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid start date %q (expected YYYY-MM-DD)", c.Data.Start))
	}
	end, err = time.Parse(dateLayout, c.Data.End)
	if err != nil {
		return start, end, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid end date %q (expected YYYY-MM-DD)", c.Data.End))
	}
	if end.Before(start) {
		return start, end, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end date %s before start date %s", c.Data.End, c.Data.Start))
	}
	return start, end, nil
}

// FrameConfig maps onto the frame builder's config
func (c *Config) FrameConfig() indicator.Config {
	return indicator.Config{
		RSIPeriod:   c.Indicators.RSIPeriod,
		MACDFast:    c.Indicators.MACDFast,
		MACDSlow:    c.Indicators.MACDSlow,
		MACDSignal:  c.Indicators.MACDSignal,
		ATRPeriod:   c.Indicators.ATRPeriod,
		OBVMAPeriod: c.Indicators.OBVMAPeriod,
		MAShort:     c.Indicators.MAShort,
		MALong:      c.Indicators.MALong,
	}
}

// SimConfig maps onto the simulator's config
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		InitialCapital: c.Backtest.InitialCapital,
		CommissionRate: c.Backtest.CommissionRate,
		SlippageRate:   c.Backtest.SlippageRate,
		Sizer: sim.SizerConfig{
			Fraction:    c.Backtest.Fraction,
			LotSize:     c.Backtest.LotSize,
			MinNotional: c.Backtest.MinNotional,
		},
		DrawdownLimit:    c.Backtest.DrawdownLimit,
		CooldownPeriod:   c.Backtest.CooldownPeriod,
		TrailingStop:     c.Backtest.TrailingStop.Enabled,
		TrailingStopMult: c.Backtest.TrailingStop.Multiplier,
	}
}

// RuleSpec builds the entry/exit rules, resolving the preset when one is
// configured.
func (c *Config) RuleSpec() (signal.RuleSpec, error) {
	entry, exit := c.Rules.Entry, c.Rules.Exit
	if c.Rules.Preset != "" {
		var err error
		entry, exit, err = signal.Preset(c.Rules.Preset, signal.PresetThresholds{
			RSILower: c.Indicators.RSILower,
			RSIUpper: c.Indicators.RSIUpper,
		})
		if err != nil {
			return signal.RuleSpec{}, err
		}
	}
	return signal.BuildSpec(entry, exit)
}
