package strategy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dnldd/trendsignal/indicator"
	"github.com/dnldd/trendsignal/shared"
)

// Kind represents a supported strategy.
type Kind int

const (
	ADXKind Kind = iota
	MACDKind
)

// String stringifies the provided strategy kind.
func (k Kind) String() string {
	switch k {
	case ADXKind:
		return "adx"
	case MACDKind:
		return "macd"
	default:
		return "unknown"
	}
}

// ParseKind parses the provided strategy name.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "adx":
		return ADXKind, nil
	case "macd":
		return MACDKind, nil
	default:
		return ADXKind, fmt.Errorf("unknown strategy provided: %s", name)
	}
}

// Config represents the strategy configuration.
type Config struct {
	// Kind is the strategy to run.
	Kind Kind
	// ADXThreshold is the trend strength an ADX reading must exceed to be actionable.
	ADXThreshold float64
	// ADXPeriod is the directional movement period.
	ADXPeriod int
	// MACDFast is the MACD fast moving average period.
	MACDFast int
	// MACDSlow is the MACD slow moving average period.
	MACDSlow int
	// MACDSignal is the MACD signal line period.
	MACDSignal int
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	switch cfg.Kind {
	case ADXKind:
		if cfg.ADXThreshold < 0 || cfg.ADXThreshold > 100 {
			errs = errors.Join(errs, fmt.Errorf("adx threshold must be between 0 and 100, got %v", cfg.ADXThreshold))
		}
		if cfg.ADXPeriod < 0 {
			errs = errors.Join(errs, fmt.Errorf("adx period cannot be negative"))
		}
	case MACDKind:
		if cfg.MACDFast < 0 || cfg.MACDSlow < 0 || cfg.MACDSignal < 0 {
			errs = errors.Join(errs, fmt.Errorf("macd periods cannot be negative"))
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown strategy kind: %d", cfg.Kind))
	}

	return errs
}

// Strategy pairs a directional intent with the indicator provider producing its inputs.
type Strategy struct {
	Kind     Kind
	Intent   shared.Intent
	Provider shared.IndicatorProvider
}

// New initializes the configured strategy.
func New(cfg *Config) (*Strategy, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case MACDKind:
		return &Strategy{
			Kind:     MACDKind,
			Intent:   NewMACD(),
			Provider: indicator.NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		}, nil
	default:
		return &Strategy{
			Kind:     ADXKind,
			Intent:   NewADX(cfg.ADXThreshold),
			Provider: indicator.NewADX(cfg.ADXPeriod),
		}, nil
	}
}
