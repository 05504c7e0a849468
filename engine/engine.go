package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/dnldd/trendsignal/position"
	"github.com/dnldd/trendsignal/shared"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// EngineConfig represents the signal engine configuration.
type EngineConfig struct {
	// Intent derives the directional intent of a market from its indicators.
	Intent shared.Intent
	// Provider derives the indicators the intent reads. A nil provider expects the
	// indicator columns to be present in the frame.
	Provider shared.IndicatorProvider
	// PriceField is the price trades are evaluated at.
	PriceField shared.PriceField
	// Position is the position sizing and exit configuration.
	Position position.Config
	// MaxWorkers is the maximum number of markets processed concurrently, defaults to the
	// number of CPUs.
	MaxWorkers int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Intent == nil {
		errs = errors.Join(errs, fmt.Errorf("no intent provided"))
	}
	if cfg.MaxWorkers < 0 {
		errs = errors.Join(errs, fmt.Errorf("max workers cannot be negative"))
	}
	if cfg.PriceField.String() == "unknown" {
		errs = errors.Join(errs, fmt.Errorf("unknown price field provided: %d", cfg.PriceField))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	err := cfg.Position.Validate()
	if err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// Engine generates the trade decisions of a set of markets.
type Engine struct {
	cfg     *EngineConfig
	rules   position.Rules
	workers int
}

// NewEngine initializes a new signal engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	rules, err := cfg.Position.Resolve()
	if err != nil {
		return nil, err
	}

	workers := cfg.MaxWorkers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	return &Engine{
		cfg:     cfg,
		rules:   rules,
		workers: workers,
	}, nil
}

// Rules returns the rules the engine runs with.
func (e *Engine) Rules() position.Rules {
	return e.rules
}

// Validate asserts every provided market has the price column and the columns the
// indicator provider reads. Every problem found is reported.
func (e *Engine) Validate(frame *shared.Frame, markets []string) error {
	if frame == nil {
		return fmt.Errorf("no frame provided")
	}

	var errs error
	seen := make(map[string]struct{}, len(markets))
	for _, market := range markets {
		if _, ok := seen[market]; ok {
			errs = errors.Join(errs, fmt.Errorf("duplicate market provided: %s", market))
			continue
		}
		seen[market] = struct{}{}

		required := []string{e.cfg.PriceField.String()}
		if e.cfg.Provider != nil {
			for _, field := range e.cfg.Provider.Inputs() {
				if field != e.cfg.PriceField {
					required = append(required, field.String())
				}
			}
		}

		for _, column := range required {
			if !frame.HasColumn(market, column) {
				errs = errors.Join(errs, shared.NewConfigError(market, column, shared.ErrMissingColumn))
			}
		}
	}

	return errs
}

// validateIndicators asserts every provided market has the columns the intent reads.
func (e *Engine) validateIndicators(frame *shared.Frame, markets []string) error {
	var errs error
	for _, market := range markets {
		for _, column := range e.cfg.Intent.Columns() {
			if !frame.HasColumn(market, column) {
				errs = errors.Join(errs, shared.NewConfigError(market, column, shared.ErrMissingColumn))
			}
		}
	}

	return errs
}

// computeIndicators derives the indicators of every provided market and adds them to
// the frame. Every market is computed, the errors of all failing markets are reported.
func (e *Engine) computeIndicators(frame *shared.Frame, markets []string) error {
	if e.cfg.Provider == nil {
		return nil
	}

	errs := make([]error, len(markets))
	workers := make(chan struct{}, e.workers)

	var wg sync.WaitGroup
	for idx := range markets {
		wg.Add(1)
		workers <- struct{}{}
		go func() {
			defer func() {
				<-workers
				wg.Done()
			}()

			market := markets[idx]
			columns, err := e.cfg.Provider.Compute(frame, market)
			if err != nil {
				errs[idx] = err
				return
			}

			for name, values := range columns {
				err := frame.SetColumn(market, name, values)
				if err != nil {
					errs[idx] = errors.Join(errs[idx], err)
				}
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// snapshotFunc returns a snapshot func over the intent columns of the provided market.
// The returned snapshot is reused across steps.
func (e *Engine) snapshotFunc(frame *shared.Frame, market string) position.SnapshotFunc {
	names := e.cfg.Intent.Columns()
	columns := make([][]float64, len(names))
	for idx := range names {
		columns[idx], _ = frame.Column(market, names[idx])
	}

	snapshot := make(shared.Snapshot, len(columns))
	return func(row int) shared.Snapshot {
		for idx := range columns {
			snapshot[idx] = columns[idx][row]
		}
		return snapshot
	}
}

// Run generates the trade decisions of the provided markets over the frame. Indicators
// are derived and added to the frame first. Any configuration problem aborts the run
// before decisions are generated.
func (e *Engine) Run(frame *shared.Frame, markets []string) (*shared.Matrix, error) {
	err := e.Validate(frame, markets)
	if err != nil {
		return nil, fmt.Errorf("validating markets: %w", err)
	}

	err = e.computeIndicators(frame, markets)
	if err != nil {
		return nil, fmt.Errorf("computing indicators: %w", err)
	}

	err = e.validateIndicators(frame, markets)
	if err != nil {
		return nil, fmt.Errorf("validating indicators: %w", err)
	}

	matrix := shared.NewMatrix(frame.Index(), markets)
	positions := make([]*position.Position, len(markets))
	for idx := range markets {
		positions[idx] = position.NewPosition(markets[idx])
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for col := range markets {
		g.Go(func() error {
			market := markets[col]
			prices, ok := frame.Column(market, e.cfg.PriceField.String())
			if !ok {
				return shared.NewConfigError(market, e.cfg.PriceField.String(), shared.ErrMissingColumn)
			}

			track := position.Walk(positions[col], prices, e.snapshotFunc(frame, market),
				e.cfg.Intent, e.rules)
			for row := range track.Decisions {
				matrix.Set(row, col, track.Decisions[row], track.Positions[row])
			}

			summary := track.Summary
			e.cfg.Logger.Info().
				Str("market", market).
				Int("longEntries", summary.LongEntries).
				Int("shortEntries", summary.ShortEntries).
				Int("targetExits", summary.TargetExits).
				Int("stopExits", summary.StopExits).
				Int("zeroShareEntries", summary.ZeroShareEntries).
				Bool("openAtEnd", summary.OpenAtEnd).
				Msgf("walked %s with %s", market, e.cfg.Intent.Name())

			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, fmt.Errorf("walking markets: %w", err)
	}

	return matrix, nil
}
