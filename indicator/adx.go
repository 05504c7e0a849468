package indicator

import (
	"fmt"

	"github.com/dnldd/trendsignal/shared"
	"github.com/markcheno/go-talib"
)

const (
	// DefaultADXPeriod is the default directional movement period.
	DefaultADXPeriod = 14
)

// ADX derives the average directional index and the positive and negative directional
// indicators from high, low and close prices.
type ADX struct {
	Period int
}

// Ensure ADX implements the IndicatorProvider interface.
var _ shared.IndicatorProvider = (*ADX)(nil)

// NewADX initializes an ADX provider, falling back to the default period for periods
// less than two.
func NewADX(period int) *ADX {
	if period < 2 {
		period = DefaultADXPeriod
	}

	return &ADX{Period: period}
}

// Name returns the provider name.
func (a *ADX) Name() string {
	return fmt.Sprintf("ADX_%d", a.Period)
}

// Inputs returns the price fields the provider reads.
func (a *ADX) Inputs() []shared.PriceField {
	return []shared.PriceField{shared.High, shared.Low, shared.Close}
}

// Columns returns the indicator columns the provider produces.
func (a *ADX) Columns() []string {
	return []string{ADXColumn, DIPColumn, DIMColumn}
}

// Compute derives the ADX, +DI and -DI series of the provided market.
func (a *ADX) Compute(frame *shared.Frame, market string) (map[string][]float64, error) {
	inputs, err := fetchInputs(frame, market, a.Inputs())
	if err != nil {
		return nil, err
	}

	need := 2 * a.Period
	start, aligned := align(inputs...)
	if start < 0 || len(aligned[0]) < need {
		var have int
		if start >= 0 {
			have = len(aligned[0])
		}
		return nil, shared.NewConfigError(market, "", fmt.Errorf("%w: %s needs %d rows, have %d",
			shared.ErrInsufficientHistory, a.Name(), need, have))
	}

	high, low, closing := aligned[0], aligned[1], aligned[2]
	n := frame.Len()

	return map[string][]float64{
		ADXColumn: expand(n, start, 2*a.Period-1, talib.Adx(high, low, closing, a.Period)),
		DIPColumn: expand(n, start, a.Period, talib.PlusDI(high, low, closing, a.Period)),
		DIMColumn: expand(n, start, a.Period, talib.MinusDI(high, low, closing, a.Period)),
	}, nil
}
