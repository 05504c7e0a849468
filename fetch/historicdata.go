package fetch

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/dnldd/trendsignal/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data. The file holds a json object
	// keyed by market, each market an array of daily candlesticks.
	FilePath string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents historic market data loaded from file.
type HistoricData struct {
	cfg     *HistoricDataConfig
	markets map[string][]gjson.Result
}

// Ensure HistoricData implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*HistoricData)(nil)

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading historic data from file with path '%s': %v", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return gjson.Result{}, fmt.Errorf("historic data file '%s' is not valid json", filepath)
	}

	return gjson.ParseBytes(readb), nil
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	data, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %v", err)
	}

	if !data.IsObject() {
		return nil, fmt.Errorf("historic data must be an object keyed by market")
	}

	markets := make(map[string][]gjson.Result)
	var parseErr error
	data.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			parseErr = fmt.Errorf("historic data for %s is not an array", key.String())
			return false
		}
		markets[key.String()] = value.Array()
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	cfg.Logger.Info().Msgf("loaded historic data for %d markets from %s", len(markets), cfg.FilePath)

	return &HistoricData{
		cfg:     cfg,
		markets: markets,
	}, nil
}

// Markets returns the markets with historic data in sorted order.
func (h *HistoricData) Markets() []string {
	markets := make([]string, 0, len(h.markets))
	for market := range h.markets {
		markets = append(markets, market)
	}
	slices.Sort(markets)

	return markets
}

// FetchDailyHistorical returns the historic data of the provided market within the
// provided range. Zero start or end times leave that side of the range open.
func (h *HistoricData) FetchDailyHistorical(ctx context.Context, market string, start time.Time, end time.Time) ([]gjson.Result, error) {
	data, ok := h.markets[market]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoData, market)
	}

	if start.IsZero() && end.IsZero() {
		return data, nil
	}

	set := make([]gjson.Result, 0, len(data))
	for idx := range data {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		dt, err := shared.ParseDate(data[idx].Get("date").String(), nil)
		if err != nil {
			return nil, fmt.Errorf("parsing historic data date for %s: %w", market, err)
		}

		if !start.IsZero() && dt.Before(start) {
			continue
		}
		if !end.IsZero() && dt.After(end) {
			continue
		}

		set = append(set, data[idx])
	}

	return set, nil
}
