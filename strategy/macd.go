package strategy

import (
	"math"

	"github.com/dnldd/trendsignal/indicator"
	"github.com/dnldd/trendsignal/shared"
)

// MACD derives directional intent from the position of the MACD line relative to its
// signal line.
type MACD struct{}

// Ensure MACD implements the Intent interface.
var _ shared.Intent = (*MACD)(nil)

// NewMACD initializes a MACD intent.
func NewMACD() *MACD {
	return &MACD{}
}

// Name returns the intent name.
func (m *MACD) Name() string {
	return "MACDStrategy"
}

// Columns returns the indicator columns the intent reads.
func (m *MACD) Columns() []string {
	return []string{indicator.MACDColumn, indicator.MACDSignalColumn}
}

// Evaluate returns the directional intent of the provided snapshot.
func (m *MACD) Evaluate(snapshot shared.Snapshot) shared.Direction {
	if len(snapshot) < 2 {
		return shared.None
	}

	macd, signal := snapshot[0], snapshot[1]
	if math.IsNaN(macd) || math.IsNaN(signal) {
		return shared.None
	}

	switch {
	case macd > signal:
		return shared.Long
	case macd < signal:
		return shared.Short
	default:
		return shared.None
	}
}
