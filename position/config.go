package position

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultTargetGainPercent is the default return that closes a position.
	DefaultTargetGainPercent = 1.0
	// DefaultMaxLossPercent is the default return below which a position is closed.
	DefaultMaxLossPercent = -1.0
	// DefaultRiskAllocationPercent is the default share of capital allocated per position.
	DefaultRiskAllocationPercent = 10.0
	// DefaultInitialCapital is the default capital.
	DefaultInitialCapital = 1_000_000.0
	// MaxDollarExposure is the largest capital that can be allocated to a position.
	MaxDollarExposure = 1e15
)

// Config represents the position sizing and exit configuration.
type Config struct {
	// InitialCapital is the capital sizing is derived from.
	InitialCapital float64
	// RiskAllocationPercent is the percentage of capital allocated to a new position.
	RiskAllocationPercent float64
	// TargetGainPercent is the return at or above which a position is closed.
	TargetGainPercent float64
	// MaxLossPercent is the return below which a position is closed.
	MaxLossPercent float64
}

// DefaultConfig returns the default position configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital:        DefaultInitialCapital,
		RiskAllocationPercent: DefaultRiskAllocationPercent,
		TargetGainPercent:     DefaultTargetGainPercent,
		MaxLossPercent:        DefaultMaxLossPercent,
	}
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	values := []struct {
		name  string
		value float64
	}{
		{name: "initial capital", value: cfg.InitialCapital},
		{name: "risk allocation", value: cfg.RiskAllocationPercent},
		{name: "target gain", value: cfg.TargetGainPercent},
		{name: "max loss", value: cfg.MaxLossPercent},
	}
	for _, v := range values {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			errs = errors.Join(errs, fmt.Errorf("%s must be a finite number", v.name))
		}
	}
	if errs != nil {
		return errs
	}

	if cfg.InitialCapital < 0 {
		errs = errors.Join(errs, fmt.Errorf("initial capital cannot be negative, got %v", cfg.InitialCapital))
	}
	if cfg.RiskAllocationPercent < 0 || cfg.RiskAllocationPercent > 100 {
		errs = errors.Join(errs, fmt.Errorf("risk allocation must be between 0 and 100, got %v",
			cfg.RiskAllocationPercent))
	}
	exposure := cfg.InitialCapital * cfg.RiskAllocationPercent / 100
	if exposure > MaxDollarExposure {
		errs = errors.Join(errs, fmt.Errorf("dollar exposure (%v) cannot exceed %v", exposure,
			MaxDollarExposure))
	}
	if cfg.TargetGainPercent <= cfg.MaxLossPercent {
		errs = errors.Join(errs, fmt.Errorf("target gain (%v) must be greater than max loss (%v)",
			cfg.TargetGainPercent, cfg.MaxLossPercent))
	}

	return errs
}

// Resolve validates the config and derives the rules of a run from it.
func (cfg *Config) Resolve() (Rules, error) {
	err := cfg.Validate()
	if err != nil {
		return Rules{}, fmt.Errorf("validating position config: %w", err)
	}

	return Rules{
		TargetGainPercent: cfg.TargetGainPercent,
		MaxLossPercent:    cfg.MaxLossPercent,
		DollarExposure:    cfg.InitialCapital * cfg.RiskAllocationPercent / 100,
	}, nil
}

// Rules represents the sizing and exit rules of a run. Rules are resolved once and not
// changed for the duration of the run.
type Rules struct {
	TargetGainPercent float64
	MaxLossPercent    float64
	// DollarExposure is the capital allocated to every new position.
	DollarExposure float64
}

// Shares returns the number of whole shares the dollar exposure buys at the provided price,
// saturated at math.MaxInt64.
func (r Rules) Shares(price float64) int64 {
	if price <= 0 || math.IsNaN(price) || r.DollarExposure <= 0 {
		return 0
	}

	shares := math.Floor(r.DollarExposure / price)
	if shares >= math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(shares)
}
