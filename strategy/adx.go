package strategy

import (
	"math"

	"github.com/dnldd/trendsignal/indicator"
	"github.com/dnldd/trendsignal/shared"
)

const (
	// DefaultADXThreshold is the default trend strength threshold.
	DefaultADXThreshold = 25
)

// ADX derives directional intent from the average directional index and the directional
// indicators. A trend stronger than the threshold is followed in the direction of the
// dominant directional indicator.
type ADX struct {
	Threshold float64
}

// Ensure ADX implements the Intent interface.
var _ shared.Intent = (*ADX)(nil)

// NewADX initializes an ADX intent with the provided threshold.
func NewADX(threshold float64) *ADX {
	return &ADX{Threshold: threshold}
}

// Name returns the intent name.
func (a *ADX) Name() string {
	return "ADXStrategy"
}

// Columns returns the indicator columns the intent reads.
func (a *ADX) Columns() []string {
	return []string{indicator.ADXColumn, indicator.DIPColumn, indicator.DIMColumn}
}

// Evaluate returns the directional intent of the provided snapshot.
func (a *ADX) Evaluate(snapshot shared.Snapshot) shared.Direction {
	if len(snapshot) < 3 {
		return shared.None
	}

	adx, dip, dim := snapshot[0], snapshot[1], snapshot[2]
	if math.IsNaN(adx) || math.IsNaN(dip) || math.IsNaN(dim) {
		return shared.None
	}

	if adx <= a.Threshold {
		return shared.None
	}

	switch {
	case dip > dim:
		return shared.Long
	case dim > dip:
		return shared.Short
	default:
		return shared.None
	}
}
