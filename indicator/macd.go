package indicator

import (
	"fmt"

	"github.com/dnldd/trendsignal/shared"
	"github.com/markcheno/go-talib"
)

const (
	// DefaultMACDFastPeriod is the default fast moving average period.
	DefaultMACDFastPeriod = 12
	// DefaultMACDSlowPeriod is the default slow moving average period.
	DefaultMACDSlowPeriod = 26
	// DefaultMACDSignalPeriod is the default signal line period.
	DefaultMACDSignalPeriod = 9
)

// MACD derives the moving average convergence divergence line and its signal line from
// close prices.
type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

// Ensure MACD implements the IndicatorProvider interface.
var _ shared.IndicatorProvider = (*MACD)(nil)

// NewMACD initializes a MACD provider. Periods less than two fall back to their defaults
// and the fast and slow periods are swapped if provided in the wrong order.
func NewMACD(fast int, slow int, signal int) *MACD {
	if fast < 2 {
		fast = DefaultMACDFastPeriod
	}
	if slow < 2 {
		slow = DefaultMACDSlowPeriod
	}
	if signal < 2 {
		signal = DefaultMACDSignalPeriod
	}
	if slow < fast {
		fast, slow = slow, fast
	}

	return &MACD{Fast: fast, Slow: slow, Signal: signal}
}

// Name returns the provider name.
func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.Fast, m.Slow, m.Signal)
}

// Inputs returns the price fields the provider reads.
func (m *MACD) Inputs() []shared.PriceField {
	return []shared.PriceField{shared.Close}
}

// Columns returns the indicator columns the provider produces.
func (m *MACD) Columns() []string {
	return []string{MACDColumn, MACDSignalColumn}
}

// lookback returns the number of leading rows without a signal line value.
func (m *MACD) lookback() int {
	return (m.Slow - 1) + (m.Signal - 1)
}

// Compute derives the MACD and signal line series of the provided market.
func (m *MACD) Compute(frame *shared.Frame, market string) (map[string][]float64, error) {
	inputs, err := fetchInputs(frame, market, m.Inputs())
	if err != nil {
		return nil, err
	}

	need := m.lookback() + 1
	start, aligned := align(inputs...)
	if start < 0 || len(aligned[0]) < need {
		var have int
		if start >= 0 {
			have = len(aligned[0])
		}
		return nil, shared.NewConfigError(market, "", fmt.Errorf("%w: %s needs %d rows, have %d",
			shared.ErrInsufficientHistory, m.Name(), need, have))
	}

	macd, signal, _ := talib.Macd(aligned[0], m.Fast, m.Slow, m.Signal)
	n := frame.Len()

	return map[string][]float64{
		MACDColumn:       expand(n, start, m.lookback(), macd),
		MACDSignalColumn: expand(n, start, m.lookback(), signal),
	}, nil
}
