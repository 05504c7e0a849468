package strategy

import (
	"math"
	"strings"
	"testing"

	"github.com/dnldd/trendsignal/indicator"
	"github.com/dnldd/trendsignal/shared"
	"github.com/peterldowns/testy/assert"
)

func TestADXEvaluate(t *testing.T) {
	adx := NewADX(DefaultADXThreshold)
	nan := math.NaN()

	tests := []struct {
		name     string
		snapshot shared.Snapshot
		want     shared.Direction
	}{
		{
			name:     "strong uptrend",
			snapshot: shared.Snapshot{30, 20, 10},
			want:     shared.Long,
		},
		{
			name:     "strong downtrend",
			snapshot: shared.Snapshot{30, 10, 20},
			want:     shared.Short,
		},
		{
			name:     "trend at threshold",
			snapshot: shared.Snapshot{25, 20, 10},
			want:     shared.None,
		},
		{
			name:     "weak trend",
			snapshot: shared.Snapshot{20, 20, 10},
			want:     shared.None,
		},
		{
			name:     "balanced directional indicators",
			snapshot: shared.Snapshot{40, 15, 15},
			want:     shared.None,
		},
		{
			name:     "undefined adx",
			snapshot: shared.Snapshot{nan, 20, 10},
			want:     shared.None,
		},
		{
			name:     "undefined directional indicator",
			snapshot: shared.Snapshot{30, 20, nan},
			want:     shared.None,
		},
		{
			name:     "short snapshot",
			snapshot: shared.Snapshot{30},
			want:     shared.None,
		},
	}

	for _, test := range tests {
		direction := adx.Evaluate(test.snapshot)
		if direction != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, direction)
		}
	}

	assert.Equal(t, adx.Name(), "ADXStrategy")
	assert.Equal(t, adx.Columns(), []string{indicator.ADXColumn, indicator.DIPColumn, indicator.DIMColumn})
}

func TestMACDEvaluate(t *testing.T) {
	macd := NewMACD()
	nan := math.NaN()

	tests := []struct {
		name     string
		snapshot shared.Snapshot
		want     shared.Direction
	}{
		{
			name:     "macd above signal",
			snapshot: shared.Snapshot{0.5, 0.2},
			want:     shared.Long,
		},
		{
			name:     "macd below signal",
			snapshot: shared.Snapshot{-0.5, 0.2},
			want:     shared.Short,
		},
		{
			name:     "macd equals signal",
			snapshot: shared.Snapshot{0.2, 0.2},
			want:     shared.None,
		},
		{
			name:     "undefined macd",
			snapshot: shared.Snapshot{nan, 0.2},
			want:     shared.None,
		},
		{
			name:     "undefined signal",
			snapshot: shared.Snapshot{0.5, nan},
			want:     shared.None,
		},
		{
			name:     "empty snapshot",
			snapshot: nil,
			want:     shared.None,
		},
	}

	for _, test := range tests {
		direction := macd.Evaluate(test.snapshot)
		if direction != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, direction)
		}
	}

	assert.Equal(t, macd.Name(), "MACDStrategy")
	assert.Equal(t, macd.Columns(), []string{indicator.MACDColumn, indicator.MACDSignalColumn})
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("ADX")
	assert.NoError(t, err)
	assert.Equal(t, kind, ADXKind)
	assert.Equal(t, kind.String(), "adx")

	kind, err = ParseKind(" macd ")
	assert.NoError(t, err)
	assert.Equal(t, kind, MACDKind)
	assert.Equal(t, kind.String(), "macd")

	_, err = ParseKind("rsi")
	assert.Error(t, err)
	assert.Equal(t, Kind(999).String(), "unknown")
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid adx",
			cfg:  Config{Kind: ADXKind, ADXThreshold: 25, ADXPeriod: 14},
		},
		{
			name: "valid macd",
			cfg:  Config{Kind: MACDKind, MACDFast: 12, MACDSlow: 26, MACDSignal: 9},
		},
		{
			name:    "adx threshold out of range",
			cfg:     Config{Kind: ADXKind, ADXThreshold: 120, ADXPeriod: -1},
			wantErr: []string{"adx threshold must be between 0 and 100", "adx period cannot be negative"},
		},
		{
			name:    "negative macd periods",
			cfg:     Config{Kind: MACDKind, MACDSlow: -26},
			wantErr: []string{"macd periods cannot be negative"},
		},
		{
			name:    "unknown kind",
			cfg:     Config{Kind: Kind(7)},
			wantErr: []string{"unknown strategy kind"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat, err := New(&tt.cfg)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				assert.Equal(t, strat.Kind, tt.cfg.Kind)
				assert.NotNil(t, strat.Intent)
				assert.NotNil(t, strat.Provider)
				return
			}

			assert.Error(t, err)
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected error to contain %q, got %v", want, err)
				}
			}
		})
	}

	// Ensure the intent reads every column the provider produces.
	strat, err := New(&Config{Kind: ADXKind, ADXThreshold: 25})
	assert.NoError(t, err)
	assert.Equal(t, strat.Intent.Columns(), strat.Provider.Columns())
	assert.Equal(t, strat.Provider.Name(), "ADX_14")

	strat, err = New(&Config{Kind: MACDKind})
	assert.NoError(t, err)
	assert.Equal(t, strat.Intent.Columns(), strat.Provider.Columns())
	assert.Equal(t, strat.Provider.Name(), "MACD_12_26_9")
}
