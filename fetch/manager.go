package fetch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/dnldd/trendsignal/shared"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultImputeWindow is the default trailing window used to impute missing values.
	DefaultImputeWindow = 5
)

// ErrNoData is returned when a source has no data for a market.
var ErrNoData = errors.New("no data")

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Fetcher is the market data source.
	Fetcher shared.MarketFetcher
	// Impute fills missing values with the rolling mean of their trailing window.
	Impute bool
	// ImputeWindow is the trailing window size, defaults to five rows.
	ImputeWindow int
	// MaxWorkers is the maximum number of concurrent fetches, defaults to the number of CPUs.
	MaxWorkers int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.Fetcher == nil {
		errs = errors.Join(errs, fmt.Errorf("no market fetcher provided"))
	}
	if cfg.ImputeWindow < 0 {
		errs = errors.Join(errs, fmt.Errorf("impute window cannot be negative"))
	}
	if cfg.MaxWorkers < 0 {
		errs = errors.Join(errs, fmt.Errorf("max workers cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager builds time aligned frames from fetched market data.
type Manager struct {
	cfg          *ManagerConfig
	imputeWindow int
	workers      int
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetch manager config: %w", err)
	}

	window := cfg.ImputeWindow
	if window == 0 {
		window = DefaultImputeWindow
	}

	workers := cfg.MaxWorkers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	return &Manager{
		cfg:          cfg,
		imputeWindow: window,
		workers:      workers,
	}, nil
}

// cleanCandlesticks orders the provided candlesticks by date and drops repeated dates,
// keeping the first. It returns the number of candlesticks dropped.
func cleanCandlesticks(candles []shared.Candlestick) ([]shared.Candlestick, int) {
	slices.SortStableFunc(candles, func(a, b shared.Candlestick) int {
		return a.Date.Compare(b.Date)
	})

	cleaned := slices.CompactFunc(candles, func(a, b shared.Candlestick) bool {
		return a.Date.Equal(b.Date)
	})

	return cleaned, len(candles) - len(cleaned)
}

// countNegatives returns the number of negative prices or volumes of the provided
// candlesticks.
func countNegatives(candles []shared.Candlestick) int {
	var count int
	for idx := range candles {
		for _, v := range []float64{candles[idx].Open, candles[idx].High, candles[idx].Low,
			candles[idx].Close, candles[idx].Volume} {
			if v < 0 {
				count++
			}
		}
	}

	return count
}

// fetchCandlesticks fetches and cleans the candlesticks of the provided market.
func (m *Manager) fetchCandlesticks(ctx context.Context, market string, start time.Time, end time.Time) ([]shared.Candlestick, error) {
	data, err := m.cfg.Fetcher.FetchDailyHistorical(ctx, market, start, end)
	if err != nil {
		return nil, err
	}

	candles, err := shared.ParseCandlesticks(data, market, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks: %w", err)
	}

	candles, dropped := cleanCandlesticks(candles)
	if dropped > 0 {
		m.cfg.Logger.Warn().Msgf("dropped %d duplicate candlesticks for %s", dropped, market)
	}

	negatives := countNegatives(candles)
	if negatives > 0 {
		m.cfg.Logger.Warn().Msgf("found %d negative values in candlesticks for %s", negatives, market)
	}

	return candles, nil
}

// Frame fetches the daily market data of the provided markets within the provided range
// and aligns them into a frame. Markets without data are left out of the frame.
func (m *Manager) Frame(ctx context.Context, markets []string, start time.Time, end time.Time) (*shared.Frame, error) {
	set := make([][]shared.Candlestick, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for idx := range markets {
		g.Go(func() error {
			market := markets[idx]
			candles, err := m.fetchCandlesticks(gctx, market, start, end)
			if err != nil {
				if errors.Is(err, ErrNoData) {
					m.cfg.Logger.Warn().Msgf("no market data for %s", market)
					return nil
				}
				return fmt.Errorf("fetching market data for %s: %w", market, err)
			}

			set[idx] = candles
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	candles := make(map[string][]shared.Candlestick, len(markets))
	for idx := range markets {
		if len(set[idx]) == 0 {
			continue
		}
		candles[markets[idx]] = set[idx]
	}

	frame, err := shared.NewFrameFromCandlesticks(markets, candles)
	if err != nil {
		return nil, fmt.Errorf("aligning market data: %w", err)
	}

	if m.cfg.Impute {
		filled := frame.FillRollingMean(m.imputeWindow)
		if filled > 0 {
			m.cfg.Logger.Info().Msgf("imputed %d missing values with a %d row rolling mean",
				filled, m.imputeWindow)
		}
	}

	m.cfg.Logger.Info().Msgf("fetched %d rows of market data for %d/%d markets",
		frame.Len(), len(candles), len(markets))

	return frame, nil
}
