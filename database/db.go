package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/trendsignal/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createRunTableSQL   = "CREATE TABLE IF NOT EXISTS run (id TEXT PRIMARY KEY, strategy TEXT, pricefield TEXT, markets TEXT, rows INTEGER, trades INTEGER, startdate TEXT, enddate TEXT, createdon INTEGER)"
	createTradeTableSQL = "CREATE TABLE IF NOT EXISTS trade (runid TEXT, market TEXT, date TEXT, step INTEGER, action TEXT, signal INTEGER, shares INTEGER, price REAL, reason TEXT, PRIMARY KEY (runid, market, step))"
	persistRunSQL       = "INSERT INTO run(id, strategy, pricefield, markets, rows, trades, startdate, enddate, createdon) VALUES(?,?,?,?,?,?,?,?,?)"
	persistTradeSQL     = "INSERT INTO trade(runid, market, date, step, action, signal, shares, price, reason) VALUES(?,?,?,?,?,?,?,?,?)"

	// defaultTimeout is the default database client timeout.
	defaultTimeout = time.Second * 5
)

// Run represents a completed backtest run.
type Run struct {
	ID         string
	Strategy   string
	PriceField shared.PriceField
	Markets    []string
	Rows       int
	Start      time.Time
	End        time.Time
	Trades     []shared.Trade
	CreatedOn  time.Time
}

// RunStorer defines the requirements for storing runs.
type RunStorer interface {
	// PersistRun stores the provided run and its trades to the database.
	PersistRun(ctx context.Context, run *Run) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Timeout is the database client timeout, defaults to five seconds.
	Timeout time.Duration
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Timeout < 0 {
		errs = errors.Join(errs, fmt.Errorf("database timeout cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the RunStorer interface.
var _ RunStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpc := &http.Client{Timeout: timeout}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// execute runs the provided statements in a single transaction.
func (db *Database) execute(ctx context.Context, statements rqlitehttp.SQLStatements) error {
	resp, err := db.client.Execute(ctx, statements, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("statement %d: %s", idx, errStr)
	}

	return nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	return db.execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunTableSQL},
		{SQL: createTradeTableSQL},
	})
}

// formatDate formats the provided date, an empty string for zero times.
func formatDate(dt time.Time) string {
	if dt.IsZero() {
		return ""
	}

	return dt.Format(shared.DateLayout)
}

// priceParam returns the provided price as a statement parameter, undefined prices are
// stored as null.
func priceParam(price float64) any {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil
	}

	return price
}

// runStatements returns the statements persisting the provided run and its trades, along
// with the number of trades persisted. Trades of markets outside the run are skipped and
// not counted.
func (db *Database) runStatements(run *Run) (rqlitehttp.SQLStatements, int) {
	trades := make(rqlitehttp.SQLStatements, 0, len(run.Trades))
	for idx := range run.Trades {
		trade := &run.Trades[idx]
		if !slices.Contains(run.Markets, trade.Market) {
			db.cfg.Logger.Error().Msgf("unexpected trade for untracked market in run %s: %s",
				run.ID, spew.Sdump(trade))
			continue
		}

		trades = append(trades, rqlitehttp.SQLStatements{{
			SQL: persistTradeSQL,
			PositionalParams: []any{run.ID, trade.Market, formatDate(trade.Date), trade.Index,
				trade.Action.String(), trade.Signal, trade.Shares, priceParam(trade.Price),
				trade.Reason.String()},
		}}...)
	}

	statements := make(rqlitehttp.SQLStatements, 0, len(trades)+1)
	statements = append(statements, rqlitehttp.SQLStatements{{
		SQL: persistRunSQL,
		PositionalParams: []any{run.ID, run.Strategy, run.PriceField.String(),
			strings.Join(run.Markets, ","), run.Rows, len(trades), formatDate(run.Start),
			formatDate(run.End), run.CreatedOn.Unix()},
	}}...)
	statements = append(statements, trades...)

	return statements, len(trades)
}

// PersistRun stores the provided run and its trades to the database.
func (db *Database) PersistRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("no run provided")
	}
	if run.ID == "" {
		return fmt.Errorf("run id cannot be an empty string")
	}

	statements, persisted := db.runStatements(run)
	err := db.execute(ctx, statements)
	if err != nil {
		return fmt.Errorf("persisting run %s: %w", run.ID, err)
	}

	db.cfg.Logger.Info().Msgf("persisted run %s with %d trades", run.ID, persisted)

	return nil
}
