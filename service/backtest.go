package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/trendsignal/database"
	"github.com/dnldd/trendsignal/engine"
	"github.com/dnldd/trendsignal/export"
	"github.com/dnldd/trendsignal/fetch"
	"github.com/dnldd/trendsignal/position"
	"github.com/dnldd/trendsignal/shared"
	"github.com/dnldd/trendsignal/strategy"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"go.uber.org/atomic"
)

const (
	// scheduleLayout is the layout of the daily re-run time.
	scheduleLayout = "15:04"
)

// BacktestConfig represents the configuration struct for the backtest service.
type BacktestConfig struct {
	// Markets represents the backtested markets.
	Markets []string
	// Strategy is the strategy configuration.
	Strategy strategy.Config
	// PriceField is the price trades are evaluated at.
	PriceField shared.PriceField
	// Position is the position sizing and exit configuration.
	Position position.Config
	// BacktestDataFilepath is the filepath to the backtest data. Market data is fetched
	// from FMP when empty.
	BacktestDataFilepath string
	// FMPAPIkey is the FMP service API Key.
	FMPAPIKey string
	// FMPBaseURL is the FMP API base url, defaults to the stable api.
	FMPBaseURL string
	// Start is the start of the backtested range, open if zero.
	Start time.Time
	// End is the end of the backtested range, open if zero.
	End time.Time
	// Impute fills missing market data with a rolling mean.
	Impute bool
	// OutputDir is the directory results are exported to, results are not exported when empty.
	OutputDir string
	// DBEndpoint is the rqlite endpoint runs are persisted to, runs are not persisted when empty.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// Schedule is the New York time (HH:MM) the backtest is re-run daily, runs once when empty.
	Schedule string
	// MaxWorkers is the maximum number of markets processed concurrently.
	MaxWorkers int
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *BacktestConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for backtest service"))
	}
	if cfg.BacktestDataFilepath == "" && cfg.FMPAPIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("either a backtest data filepath or an fmp api key is required"))
	}
	if !cfg.Start.IsZero() && !cfg.End.IsZero() && !cfg.Start.Before(cfg.End) {
		errs = errors.Join(errs, fmt.Errorf("backtest start (%s) must be before its end (%s)",
			cfg.Start.Format(shared.DateLayout), cfg.End.Format(shared.DateLayout)))
	}
	if cfg.Schedule != "" {
		_, err := time.Parse(scheduleLayout, cfg.Schedule)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("invalid schedule time %q, expected HH:MM", cfg.Schedule))
		}
	}
	if cfg.MaxWorkers < 0 {
		errs = errors.Join(errs, fmt.Errorf("max workers cannot be negative"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Result represents the outcome of a backtest run.
type Result struct {
	ID     string
	Frame  *shared.Frame
	Matrix *shared.Matrix
	Trades []shared.Trade
	// Paths are the exported files.
	Paths []string
}

// Backtest represents a trade signal backtesting service.
type Backtest struct {
	cfg          *BacktestConfig
	strategy     *strategy.Strategy
	engine       *engine.Engine
	fetchManager *fetch.Manager
	exporter     *export.Exporter
	db           database.RunStorer
	jobScheduler *gocron.Scheduler
	runs         atomic.Uint64
	lastRunID    atomic.String
	runMtx       sync.Mutex
	logger       *zerolog.Logger
}

// NewBacktest initializes a new backtest service.
func NewBacktest(ctx context.Context, cfg *BacktestConfig) (*Backtest, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating backtest config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "backtest").Logger()

	strat, err := strategy.New(&cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("creating strategy: %v", err)
	}

	var fetcher shared.MarketFetcher
	switch {
	case cfg.BacktestDataFilepath != "":
		historicDataLogger := logger.With().Str("component", "historicdata").Logger()
		fetcher, err = fetch.NewHistoricData(&fetch.HistoricDataConfig{
			FilePath: cfg.BacktestDataFilepath,
			Logger:   &historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %v", err)
		}
	default:
		baseURL := cfg.FMPBaseURL
		if baseURL == "" {
			baseURL = fetch.BaseURL
		}
		fetcher, err = fetch.NewFMPClient(&fetch.FMPConfig{APIKey: cfg.FMPAPIKey, BaseURL: baseURL})
		if err != nil {
			return nil, fmt.Errorf("creating fmp client: %v", err)
		}
	}

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Fetcher:    fetcher,
		Impute:     cfg.Impute,
		MaxWorkers: cfg.MaxWorkers,
		Logger:     &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %v", err)
	}

	engineLogger := logger.With().Str("component", "engine").Logger()
	signalEngine, err := engine.NewEngine(&engine.EngineConfig{
		Intent:     strat.Intent,
		Provider:   strat.Provider,
		PriceField: cfg.PriceField,
		Position:   cfg.Position,
		MaxWorkers: cfg.MaxWorkers,
		Logger:     &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine: %v", err)
	}

	service := &Backtest{
		cfg:          cfg,
		strategy:     strat,
		engine:       signalEngine,
		fetchManager: fetchMgr,
		logger:       &logger,
	}

	if cfg.OutputDir != "" {
		exporterLogger := logger.With().Str("component", "exporter").Logger()
		service.exporter, err = export.NewExporter(&export.ExporterConfig{
			OutputDir: cfg.OutputDir,
			Logger:    &exporterLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating exporter: %v", err)
		}
	}

	if cfg.DBEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		service.db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %v", err)
		}
	}

	if cfg.Schedule != "" {
		_, loc, err := shared.NewYorkTime()
		if err != nil {
			return nil, fmt.Errorf("fetching new york time: %v", err)
		}

		service.jobScheduler = gocron.NewScheduler(loc)
		service.jobScheduler.SingletonModeAll()
		_, err = service.jobScheduler.Every(1).Day().At(cfg.Schedule).Do(func() {
			_, err := service.RunOnce(ctx)
			if err != nil {
				service.logger.Error().Err(err).Msg("scheduled backtest failed")
			}
		})
		if err != nil {
			return nil, fmt.Errorf("scheduling daily backtest: %v", err)
		}
	}

	return service, nil
}

// Runs returns the number of completed runs.
func (b *Backtest) Runs() uint64 {
	return b.runs.Load()
}

// LastRunID returns the id of the last completed run.
func (b *Backtest) LastRunID() string {
	return b.lastRunID.Load()
}

// RunOnce runs a single backtest over freshly fetched market data, exporting and
// persisting the results when configured.
func (b *Backtest) RunOnce(ctx context.Context) (*Result, error) {
	b.runMtx.Lock()
	defer b.runMtx.Unlock()

	id := uuid.New().String()
	logger := b.logger.With().Str("run", id).Logger()

	frame, err := b.fetchManager.Frame(ctx, b.cfg.Markets, b.cfg.Start, b.cfg.End)
	if err != nil {
		return nil, fmt.Errorf("fetching market data: %w", err)
	}

	matrix, err := b.engine.Run(frame, b.cfg.Markets)
	if err != nil {
		return nil, fmt.Errorf("running engine: %w", err)
	}

	res := &Result{
		ID:     id,
		Frame:  frame,
		Matrix: matrix,
		Trades: matrix.Trades(frame, b.cfg.PriceField),
	}

	if b.exporter != nil {
		paths, err := b.exporter.WriteMatrix(matrix)
		if err != nil {
			return nil, fmt.Errorf("exporting matrices: %w", err)
		}

		path, err := b.exporter.WriteTrades(res.Trades)
		if err != nil {
			return nil, fmt.Errorf("exporting trades: %w", err)
		}

		res.Paths = append(paths, path)
	}

	if b.db != nil {
		now, _, err := shared.NewYorkTime()
		if err != nil {
			return nil, fmt.Errorf("fetching new york time: %v", err)
		}

		err = b.db.PersistRun(ctx, &database.Run{
			ID:         id,
			Strategy:   b.strategy.Intent.Name(),
			PriceField: b.cfg.PriceField,
			Markets:    b.cfg.Markets,
			Rows:       frame.Len(),
			Start:      b.cfg.Start,
			End:        b.cfg.End,
			Trades:     res.Trades,
			CreatedOn:  now,
		})
		if err != nil {
			return nil, fmt.Errorf("persisting run: %w", err)
		}
	}

	runs := b.runs.Inc()
	b.lastRunID.Store(id)

	logger.Info().Msgf("backtest %d of %s over %d markets and %d rows produced %d trades",
		runs, b.strategy.Intent.Name(), len(b.cfg.Markets), frame.Len(), len(res.Trades))

	return res, nil
}

// Run handles the lifecycle processes of the backtest service. The backtest runs once
// immediately and the service context is cancelled after, unless a daily schedule is
// configured in which case it re-runs until the context is done.
func (b *Backtest) Run(ctx context.Context) error {
	defer b.cfg.Cancel()

	_, err := b.RunOnce(ctx)
	if b.jobScheduler == nil {
		return err
	}
	if err != nil {
		b.logger.Error().Err(err).Msg("initial backtest failed")
	}

	b.jobScheduler.StartAsync()
	b.logger.Info().Msgf("backtest scheduled daily at %s New York time", b.cfg.Schedule)

	<-ctx.Done()
	b.jobScheduler.Stop()

	return nil
}
