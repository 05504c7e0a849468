package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/trendsignal/position"
	"github.com/dnldd/trendsignal/service"
	"github.com/dnldd/trendsignal/shared"
	"github.com/dnldd/trendsignal/strategy"
	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Markets represents the backtested markets.
	Markets []string
	// Strategy is the strategy to run (adx or macd).
	Strategy string
	// PriceField is the candlestick field trades are evaluated at.
	PriceField string
	// InitialCapital is the capital position sizes are derived from.
	InitialCapital float64
	// RiskAllocation is the percentage of capital allocated to a new position.
	RiskAllocation float64
	// TargetGain is the percentage return at or above which a position is closed.
	TargetGain float64
	// MaxLoss is the percentage return below which a position is closed.
	MaxLoss float64
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
	// BacktestDataFilepath is the filepath to the backtest data.
	BacktestDataFilepath string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// Start is the start date (YYYY-MM-DD) of the backtested range.
	Start string
	// End is the end date (YYYY-MM-DD) of the backtested range.
	End string
	// Impute fills missing market data with a rolling mean.
	Impute bool
	// OutputDir is the directory results are exported to.
	OutputDir string
	// DBEndpoint is the rqlite endpoint runs are persisted to.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// Schedule is the New York time (HH:MM) the backtest is re-run daily.
	Schedule string
	// Workers is the maximum number of markets processed concurrently.
	Workers int

	registeredFlags map[string]bool
}

// parseDate parses the provided optional date.
func parseDate(name string, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	dt, err := shared.ParseDate(value, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q: %w", name, value, err)
	}

	return dt, nil
}

// positionConfig returns the position configuration.
func (cfg *Config) positionConfig() position.Config {
	return position.Config{
		InitialCapital:        cfg.InitialCapital,
		RiskAllocationPercent: cfg.RiskAllocation,
		TargetGainPercent:     cfg.TargetGain,
		MaxLossPercent:        cfg.MaxLoss,
	}
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for backtest service"))
	}
	if cfg.BacktestDataFilepath == "" && cfg.FMPAPIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("either a backtest data filepath or an fmp api key is required"))
	}
	if cfg.Workers < 0 {
		errs = errors.Join(errs, fmt.Errorf("workers cannot be negative"))
	}

	_, err := strategy.ParseKind(cfg.Strategy)
	if err != nil {
		errs = errors.Join(errs, err)
	}
	_, err = shared.ParsePriceField(cfg.PriceField)
	if err != nil {
		errs = errors.Join(errs, err)
	}
	_, err = parseDate("start", cfg.Start)
	if err != nil {
		errs = errors.Join(errs, err)
	}
	_, err = parseDate("end", cfg.End)
	if err != nil {
		errs = errors.Join(errs, err)
	}

	posCfg := cfg.positionConfig()
	err = posCfg.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// backtestConfig derives the backtest service configuration.
func (cfg *Config) backtestConfig(cancel context.CancelFunc) (*service.BacktestConfig, error) {
	kind, err := strategy.ParseKind(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	field, err := shared.ParsePriceField(cfg.PriceField)
	if err != nil {
		return nil, err
	}
	start, err := parseDate("start", cfg.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end", cfg.End)
	if err != nil {
		return nil, err
	}

	return &service.BacktestConfig{
		Markets: cfg.Markets,
		Strategy: strategy.Config{
			Kind:         kind,
			ADXThreshold: cfg.ADXThreshold,
			ADXPeriod:    cfg.ADXPeriod,
			MACDFast:     cfg.MACDFast,
			MACDSlow:     cfg.MACDSlow,
			MACDSignal:   cfg.MACDSignal,
		},
		PriceField:           field,
		Position:             cfg.positionConfig(),
		BacktestDataFilepath: cfg.BacktestDataFilepath,
		FMPAPIKey:            cfg.FMPAPIKey,
		Start:                start,
		End:                  end,
		Impute:               cfg.Impute,
		OutputDir:            cfg.OutputDir,
		DBEndpoint:           cfg.DBEndpoint,
		DBUser:               cfg.DBUser,
		DBPass:               cfg.DBPass,
		Schedule:             cfg.Schedule,
		MaxWorkers:           cfg.Workers,
		Cancel:               cancel,
	}, nil
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// The environment value of the same name is the flag default, falling back to the provided value.
func (cfg *Config) registerFlag(name string, value interface{}, fallback string, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	if defValue == "" {
		defValue = fallback
	}

	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			var err error
			def, err = strconv.ParseBool(defValue)
			if err != nil {
				return fmt.Errorf("%s: invalid bool %q", name, defValue)
			}
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			var err error
			def, err = strconv.Atoi(defValue)
			if err != nil {
				return fmt.Errorf("%s: invalid int %q", name, defValue)
			}
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			var err error
			def, err = strconv.ParseFloat(defValue, 64)
			if err != nil {
				return fmt.Errorf("%s: invalid float %q", name, defValue)
			}
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			split := func(s string) []string {
				parts := strings.Split(s, ",")
				set := make([]string, 0, len(parts))
				for _, part := range parts {
					part = strings.TrimSpace(part)
					if part != "" {
						set = append(set, part)
					}
				}
				return set
			}

			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = split(s)
				return nil
			})
			// Set default if not provided via flag
			if defValue != "" {
				*value.(*[]string) = split(defValue)
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	flags := []struct {
		name     string
		value    interface{}
		fallback string
		usage    string
	}{
		{"markets", &cfg.Markets, "", "the backtested markets"},
		{"strategy", &cfg.Strategy, strategy.ADXKind.String(), "the strategy to run (adx, macd)"},
		{"pricefield", &cfg.PriceField, shared.Close.String(), "the price field trades are evaluated at"},
		{"initialcapital", &cfg.InitialCapital, strconv.FormatFloat(position.DefaultInitialCapital, 'f', -1, 64), "the initial capital"},
		{"riskallocation", &cfg.RiskAllocation, strconv.FormatFloat(position.DefaultRiskAllocationPercent, 'f', -1, 64), "the percentage of capital allocated per position"},
		{"targetgain", &cfg.TargetGain, strconv.FormatFloat(position.DefaultTargetGainPercent, 'f', -1, 64), "the percentage gain that closes a position"},
		{"maxloss", &cfg.MaxLoss, strconv.FormatFloat(position.DefaultMaxLossPercent, 'f', -1, 64), "the percentage loss that closes a position"},
		{"adxthreshold", &cfg.ADXThreshold, strconv.FormatFloat(strategy.DefaultADXThreshold, 'f', -1, 64), "the adx trend strength threshold"},
		{"adxperiod", &cfg.ADXPeriod, "14", "the adx period"},
		{"macdfast", &cfg.MACDFast, "12", "the macd fast period"},
		{"macdslow", &cfg.MACDSlow, "26", "the macd slow period"},
		{"macdsignal", &cfg.MACDSignal, "9", "the macd signal period"},
		{"backtestdatafilepath", &cfg.BacktestDataFilepath, "", "the backtest data filepath"},
		{"fmpapikey", &cfg.FMPAPIKey, "", "the FMP api key"},
		{"start", &cfg.Start, "", "the backtest start date (YYYY-MM-DD)"},
		{"end", &cfg.End, "", "the backtest end date (YYYY-MM-DD)"},
		{"impute", &cfg.Impute, "", "impute missing market data with a rolling mean"},
		{"outputdir", &cfg.OutputDir, "", "the directory results are exported to"},
		{"dbendpoint", &cfg.DBEndpoint, "", "the rqlite endpoint runs are persisted to"},
		{"dbuser", &cfg.DBUser, "", "the database user"},
		{"dbpass", &cfg.DBPass, "", "the database user pass"},
		{"schedule", &cfg.Schedule, "", "the daily re-run time in New York (HH:MM)"},
		{"workers", &cfg.Workers, "", "the maximum number of markets processed concurrently"},
	}

	// Register command line arguments using loaded environment variables as defaults.
	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.fallback, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
