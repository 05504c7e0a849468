package shared

import (
	"context"
	"time"

	"github.com/tidwall/gjson"
)

// Snapshot represents the indicator values of a market at a single step, ordered as the
// columns required by the intent evaluating it. Undefined values are NaN.
type Snapshot []float64

// Intent defines the requirements for deriving a directional intent from indicators.
type Intent interface {
	// Name returns the intent name.
	Name() string
	// Columns returns the indicator columns the intent reads, in snapshot order.
	Columns() []string
	// Evaluate returns the directional intent of the provided snapshot.
	Evaluate(snapshot Snapshot) Direction
}

// IndicatorProvider defines the requirements for deriving indicator series for a market.
type IndicatorProvider interface {
	// Name returns the provider name.
	Name() string
	// Inputs returns the price fields the provider reads.
	Inputs() []PriceField
	// Columns returns the indicator columns the provider produces.
	Columns() []string
	// Compute derives the indicator series of the provided market, aligned to the frame index.
	Compute(frame *Frame, market string) (map[string][]float64, error)
}

// MarketFetcher defines the requirements for fetching market data.
type MarketFetcher interface {
	// FetchDailyHistorical fetches daily historical market data.
	FetchDailyHistorical(ctx context.Context, market string, start time.Time, end time.Time) ([]gjson.Result, error)
}
