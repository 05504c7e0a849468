package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dnldd/trendsignal/shared"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rs/zerolog"
)

const (
	// SignalsFile is the trade signals export file name.
	SignalsFile = "tradesignal.csv"
	// ActionsFile is the trade actions export file name.
	ActionsFile = "tradeaction.csv"
	// SharesFile is the traded shares export file name.
	SharesFile = "shares.csv"
	// TradesFile is the flattened trades export file name.
	TradesFile = "trades.csv"
	// DateColumn is the date column name of every export.
	DateColumn = "Date"
)

// ExporterConfig represents the exporter configuration.
type ExporterConfig struct {
	// OutputDir is the directory exports are written to.
	OutputDir string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ExporterConfig) Validate() error {
	var errs error

	if cfg.OutputDir == "" {
		errs = errors.Join(errs, fmt.Errorf("output directory cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Exporter writes run results to csv files.
type Exporter struct {
	cfg *ExporterConfig
}

// NewExporter initializes a new exporter, creating the output directory if needed.
func NewExporter(cfg *ExporterConfig) (*Exporter, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating exporter config: %w", err)
	}

	err = os.MkdirAll(cfg.OutputDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Exporter{cfg: cfg}, nil
}

// dateSeries returns the formatted date column of the provided matrix.
func dateSeries(m *shared.Matrix) series.Series {
	dates := make([]string, len(m.Index))
	for idx := range m.Index {
		dates[idx] = m.Index[idx].Format(shared.DateLayout)
	}

	return series.New(dates, series.String, DateColumn)
}

// SignalsFrame returns the trade signals of the provided matrix as a dataframe, one
// column per market.
func SignalsFrame(m *shared.Matrix) dataframe.DataFrame {
	cols := []series.Series{dateSeries(m)}
	for col, market := range m.Markets {
		values := make([]int, len(m.Index))
		for row := range values {
			values[row] = int(m.Signals[row][col])
		}
		cols = append(cols, series.New(values, series.Int, market))
	}

	return dataframe.New(cols...)
}

// ActionsFrame returns the trade actions of the provided matrix as a dataframe, one
// column per market.
func ActionsFrame(m *shared.Matrix) dataframe.DataFrame {
	cols := []series.Series{dateSeries(m)}
	for col, market := range m.Markets {
		values := make([]string, len(m.Index))
		for row := range values {
			values[row] = m.Actions[row][col].String()
		}
		cols = append(cols, series.New(values, series.String, market))
	}

	return dataframe.New(cols...)
}

// SharesFrame returns the traded shares of the provided matrix as a dataframe, one
// column per market.
func SharesFrame(m *shared.Matrix) dataframe.DataFrame {
	cols := []series.Series{dateSeries(m)}
	for col, market := range m.Markets {
		values := make([]int, len(m.Index))
		for row := range values {
			values[row] = int(m.Shares[row][col])
		}
		cols = append(cols, series.New(values, series.Int, market))
	}

	return dataframe.New(cols...)
}

// TradesFrame returns the provided trades as a dataframe, one row per trade.
func TradesFrame(trades []shared.Trade) dataframe.DataFrame {
	n := len(trades)
	dates := make([]string, n)
	markets := make([]string, n)
	actions := make([]string, n)
	signals := make([]int, n)
	shares := make([]int, n)
	prices := make([]float64, n)
	reasons := make([]string, n)

	for idx := range trades {
		dates[idx] = trades[idx].Date.Format(shared.DateLayout)
		markets[idx] = trades[idx].Market
		actions[idx] = trades[idx].Action.String()
		signals[idx] = int(trades[idx].Signal)
		shares[idx] = int(trades[idx].Shares)
		prices[idx] = trades[idx].Price
		reasons[idx] = trades[idx].Reason.String()
	}

	return dataframe.New(
		series.New(dates, series.String, DateColumn),
		series.New(markets, series.String, "Market"),
		series.New(actions, series.String, "Action"),
		series.New(signals, series.Int, "Signal"),
		series.New(shares, series.Int, "Shares"),
		series.New(prices, series.Float, "Price"),
		series.New(reasons, series.String, "Reason"),
	)
}

// writeFrame writes the provided dataframe to the named file in the output directory.
func (e *Exporter) writeFrame(name string, df dataframe.DataFrame) (string, error) {
	if df.Err != nil {
		return "", fmt.Errorf("building %s: %w", name, df.Err)
	}

	path := filepath.Join(e.cfg.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}

	err = df.WriteCSV(f)
	if err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	err = f.Close()
	if err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}

	return path, nil
}

// WriteMatrix writes the trade signals, actions and shares of the provided matrix to
// their csv files. It returns the paths written.
func (e *Exporter) WriteMatrix(m *shared.Matrix) ([]string, error) {
	if m == nil {
		return nil, fmt.Errorf("no matrix provided")
	}

	frames := []struct {
		name string
		df   dataframe.DataFrame
	}{
		{name: SignalsFile, df: SignalsFrame(m)},
		{name: ActionsFile, df: ActionsFrame(m)},
		{name: SharesFile, df: SharesFrame(m)},
	}

	paths := make([]string, 0, len(frames))
	for _, frame := range frames {
		path, err := e.writeFrame(frame.name, frame.df)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	e.cfg.Logger.Info().Msgf("exported %d x %d matrices to %s", len(m.Index), len(m.Markets),
		e.cfg.OutputDir)

	return paths, nil
}

// WriteTrades writes the provided trades to the trades csv file. It returns the path
// written.
func (e *Exporter) WriteTrades(trades []shared.Trade) (string, error) {
	path, err := e.writeFrame(TradesFile, TradesFrame(trades))
	if err != nil {
		return "", err
	}

	e.cfg.Logger.Info().Msgf("exported %d trades to %s", len(trades), path)

	return path, nil
}
