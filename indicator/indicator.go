package indicator

import (
	"math"
	"slices"

	"github.com/dnldd/trendsignal/shared"
)

const (
	// ADXColumn is the average directional index column.
	ADXColumn = "ADX"
	// DIPColumn is the positive directional indicator column.
	DIPColumn = "DIP"
	// DIMColumn is the negative directional indicator column.
	DIMColumn = "DIM"
	// MACDColumn is the moving average convergence divergence column.
	MACDColumn = "MACD"
	// MACDSignalColumn is the MACD signal line column.
	MACDSignalColumn = "MACD_Signal"
)

// isDefined checks whether the provided value is defined.
func isDefined(v float64) bool {
	return !math.IsNaN(v)
}

// fetchInputs returns the provided price field columns of the market.
func fetchInputs(frame *shared.Frame, market string, fields []shared.PriceField) ([][]float64, error) {
	inputs := make([][]float64, 0, len(fields))
	for _, field := range fields {
		values, ok := frame.Column(market, field.String())
		if !ok {
			return nil, shared.NewConfigError(market, field.String(), shared.ErrMissingColumn)
		}
		inputs = append(inputs, values)
	}

	return inputs, nil
}

// align trims the undefined prefix of the provided series and forward fills the remaining
// gaps so they can be computed over. It returns the position the trimmed series start at
// in the original series, -1 if any series is entirely undefined.
func align(series ...[]float64) (int, [][]float64) {
	start := 0
	for _, values := range series {
		first := slices.IndexFunc(values, isDefined)
		if first < 0 {
			return -1, nil
		}
		start = max(start, first)
	}

	aligned := make([][]float64, len(series))
	for idx, values := range series {
		trimmed := slices.Clone(values[start:])
		if !isDefined(trimmed[0]) {
			// The trimmed start can still be undefined for some of the series, carry the
			// last defined value before it forward.
			last := slices.IndexFunc(values, isDefined)
			for j := last; j < start; j++ {
				if isDefined(values[j]) {
					last = j
				}
			}
			trimmed[0] = values[last]
		}
		for j := 1; j < len(trimmed); j++ {
			if !isDefined(trimmed[j]) {
				trimmed[j] = trimmed[j-1]
			}
		}
		aligned[idx] = trimmed
	}

	return start, aligned
}

// expand places computed values back onto a series of length n starting at the provided
// position. Values inside the lookback window are undefined.
func expand(n int, start int, lookback int, values []float64) []float64 {
	out := make([]float64, n)
	for idx := range out {
		out[idx] = math.NaN()
	}

	for idx := lookback; idx < len(values); idx++ {
		out[start+idx] = values[idx]
	}

	return out
}
