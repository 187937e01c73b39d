package sim

import (
	"fmt"
	"math"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// SizerConfig controls how order quantities are derived from cash
type SizerConfig struct {
	Fraction    float64 // share of cash committed per entry, (0, 1]
	LotSize     float64 // tradable unit; 0 allows fractional quantities
	MinNotional float64 // orders below this value are dropped
}

// Validate fails fast on an unusable sizing configuration
func (c SizerConfig) Validate() error {
	if c.Fraction <= 0 || c.Fraction > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("sizing fraction must be in (0, 1], got %v", c.Fraction))
	}
	if c.LotSize < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lot size cannot be negative, got %v", c.LotSize))
	}
	if c.MinNotional < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min notional cannot be negative, got %v", c.MinNotional))
	}
	return nil
}

// Sizer computes tradable quantities. It does not know the commission
// rate; the simulator re-checks affordability before committing a fill.
type Sizer struct {
	cfg SizerConfig
}

// NewSizer validates the config and returns a sizer
func NewSizer(cfg SizerConfig) (*Sizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sizer{cfg: cfg}, nil
}

// Size returns the quantity to buy with the given cash at the given price,
// floored to the configured lot size. Returns 0 when the price is not
// positive or the resulting notional is below the configured minimum.
func (s *Sizer) Size(cash, price float64) float64 {
	if price <= 0 || cash <= 0 {
		return 0
	}

	qty := cash * s.cfg.Fraction / price
	if s.cfg.LotSize > 0 {
		qty = math.Floor(qty/s.cfg.LotSize) * s.cfg.LotSize
	}
	if qty <= 0 || qty*price < s.cfg.MinNotional {
		return 0
	}
	return qty
}
