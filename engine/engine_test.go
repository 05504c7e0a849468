package engine

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/trendsignal/indicator"
	"github.com/dnldd/trendsignal/position"
	"github.com/dnldd/trendsignal/shared"
	"github.com/dnldd/trendsignal/strategy"
	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// dailyIndex returns a daily time index of the provided length.
func dailyIndex(rows int) []time.Time {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, rows)
	for idx := range index {
		index[idx] = start.AddDate(0, 0, idx)
	}

	return index
}

// swingFrame creates a frame of oscillating prices for the provided markets, each market
// offset in phase by the provided phases.
func swingFrame(t *testing.T, rows int, markets []string, phases []float64) *shared.Frame {
	t.Helper()

	frame, err := shared.NewFrame(dailyIndex(rows))
	assert.NoError(t, err)

	for mIdx, market := range markets {
		high := make([]float64, rows)
		low := make([]float64, rows)
		closing := make([]float64, rows)
		for idx := 0; idx < rows; idx++ {
			price := 100 + 10*math.Sin(float64(idx)/8+phases[mIdx]) + 0.2*float64(idx)
			high[idx] = price * 1.01
			low[idx] = price * 0.99
			closing[idx] = price
		}

		assert.NoError(t, frame.SetColumn(market, shared.High.String(), high))
		assert.NoError(t, frame.SetColumn(market, shared.Low.String(), low))
		assert.NoError(t, frame.SetColumn(market, shared.Close.String(), closing))
	}

	return frame
}

// setupEngine initializes an engine running the provided strategy kind.
func setupEngine(t *testing.T, kind strategy.Kind, workers int) *Engine {
	t.Helper()

	strat, err := strategy.New(&strategy.Config{Kind: kind, ADXThreshold: strategy.DefaultADXThreshold})
	assert.NoError(t, err)

	eng, err := NewEngine(&EngineConfig{
		Intent:     strat.Intent,
		Provider:   strat.Provider,
		PriceField: shared.Close,
		Position:   position.DefaultConfig(),
		MaxWorkers: workers,
		Logger:     &log.Logger,
	})
	assert.NoError(t, err)

	return eng
}

// checkMatrix asserts the action, signal and share invariants of every matrix cell.
func checkMatrix(t *testing.T, matrix *shared.Matrix) {
	t.Helper()

	for row := range matrix.Actions {
		for col := range matrix.Actions[row] {
			decision := matrix.Decision(row, col)
			switch decision.Action {
			case shared.NoAction:
				assert.Equal(t, decision.Signal, int8(0))
				assert.Equal(t, decision.Shares, int64(0))
			case shared.Buy:
				assert.Equal(t, decision.Signal, int8(1))
			case shared.Sell:
				assert.Equal(t, decision.Signal, int8(-1))
			}
		}
	}

	// Ensure the first step is inert.
	if len(matrix.Actions) > 0 {
		for col := range matrix.Markets {
			assert.Equal(t, matrix.Decision(0, col), shared.Decision{})
		}
	}
}

func TestEngineConfigValidate(t *testing.T) {
	strat := strategy.NewMACD()

	tests := []struct {
		name    string
		cfg     EngineConfig
		wantErr []string
	}{
		{
			name: "valid",
			cfg:  EngineConfig{Intent: strat, Position: position.DefaultConfig(), Logger: &log.Logger},
		},
		{
			name:    "no intent",
			cfg:     EngineConfig{Position: position.DefaultConfig(), Logger: &log.Logger},
			wantErr: []string{"no intent provided"},
		},
		{
			name:    "no logger",
			cfg:     EngineConfig{Intent: strat, Position: position.DefaultConfig()},
			wantErr: []string{"logger cannot be nil"},
		},
		{
			name: "invalid workers and price field",
			cfg: EngineConfig{Intent: strat, Position: position.DefaultConfig(), MaxWorkers: -1,
				PriceField: shared.PriceField(99), Logger: &log.Logger},
			wantErr: []string{"max workers cannot be negative", "unknown price field provided"},
		},
		{
			name:    "invalid position config",
			cfg: EngineConfig{Intent: strat, Position: position.Config{RiskAllocationPercent: 200},
				Logger: &log.Logger},
			wantErr: []string{"risk allocation must be between 0 and 100"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := NewEngine(&tt.cfg)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				assert.NotNil(t, eng)
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
}

func TestEngineRules(t *testing.T) {
	eng := setupEngine(t, strategy.ADXKind, 0)

	// Ensure the rules are resolved once from the position config.
	assert.Equal(t, eng.Rules().DollarExposure, float64(100_000))
	assert.True(t, eng.workers > 0)
}

func TestRunMissingColumns(t *testing.T) {
	eng := setupEngine(t, strategy.ADXKind, 2)

	frame, err := shared.NewFrame(dailyIndex(40))
	assert.NoError(t, err)
	closing := make([]float64, 40)
	assert.NoError(t, frame.SetColumn("SPY", shared.Close.String(), closing))

	// Ensure every missing column of every market is reported and the run is aborted.
	matrix, err := eng.Run(frame, []string{"SPY", "QQQ"})
	assert.Error(t, err)
	assert.Nil(t, matrix)
	assert.True(t, errors.Is(err, shared.ErrMissingColumn))

	var cfgErr *shared.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	for _, want := range []string{
		"cannot find SPY_high for SPY",
		"cannot find SPY_low for SPY",
		"cannot find QQQ_close for QQQ",
		"cannot find QQQ_high for QQQ",
		"cannot find QQQ_low for QQQ",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to contain %q, got %v", want, err)
		}
	}
	assert.False(t, strings.Contains(err.Error(), "SPY_close"))

	// Ensure duplicate markets are rejected.
	err = eng.Validate(frame, []string{"SPY", "SPY"})
	assert.True(t, strings.Contains(err.Error(), "duplicate market provided: SPY"))

	// Ensure a nil frame is rejected.
	_, err = eng.Run(nil, []string{"SPY"})
	assert.Error(t, err)
}

func TestRunInsufficientHistory(t *testing.T) {
	eng := setupEngine(t, strategy.ADXKind, 2)
	frame := swingFrame(t, 10, []string{"SPY", "QQQ"}, []float64{0, 1})

	// Ensure markets too short for their indicators abort the run.
	_, err := eng.Run(frame, []string{"SPY", "QQQ"})
	assert.True(t, errors.Is(err, shared.ErrInsufficientHistory))
	assert.True(t, strings.Contains(err.Error(), "for SPY"))
	assert.True(t, strings.Contains(err.Error(), "for QQQ"))

	// Ensure every failing market is reported with a single worker.
	markets := []string{"SPY", "QQQ", "DIA"}
	eng = setupEngine(t, strategy.ADXKind, 1)
	frame = swingFrame(t, 10, markets, []float64{0, 1, 2})
	_, err = eng.Run(frame, markets)
	assert.True(t, errors.Is(err, shared.ErrInsufficientHistory))
	for _, market := range markets {
		assert.True(t, strings.Contains(err.Error(), "for "+market))
	}
}

func TestRunPrecomputedIndicators(t *testing.T) {
	eng, err := NewEngine(&EngineConfig{
		Intent:     strategy.NewMACD(),
		PriceField: shared.Close,
		Position:   position.DefaultConfig(),
		Logger:     &log.Logger,
	})
	assert.NoError(t, err)

	frame, err := shared.NewFrame(dailyIndex(4))
	assert.NoError(t, err)
	assert.NoError(t, frame.SetColumn("X", shared.Close.String(), []float64{50, 50, 50.2, 50.6}))

	// Ensure missing indicator columns are reported when no provider is configured.
	_, err = eng.Run(frame, []string{"X"})
	assert.True(t, errors.Is(err, shared.ErrMissingColumn))
	assert.True(t, strings.Contains(err.Error(), "cannot find X_MACD for X"))
	assert.True(t, strings.Contains(err.Error(), "cannot find X_MACD_Signal for X"))

	assert.NoError(t, frame.SetColumn("X", indicator.MACDColumn, []float64{0, -0.5, -0.6, -0.7}))
	assert.NoError(t, frame.SetColumn("X", indicator.MACDSignalColumn, []float64{0, 0.2, 0.2, 0.2}))

	// Ensure the short entry and its close are generated from the frame's indicators.
	matrix, err := eng.Run(frame, []string{"X"})
	assert.NoError(t, err)
	checkMatrix(t, matrix)

	assert.Equal(t, matrix.Signals, [][]int8{{0}, {-1}, {0}, {1}})
	assert.Equal(t, matrix.Actions, [][]shared.Action{{shared.NoAction}, {shared.Sell},
		{shared.NoAction}, {shared.Buy}})
	assert.Equal(t, matrix.Shares, [][]int64{{0}, {2000}, {0}, {2000}})
	assert.Equal(t, matrix.Positions, [][]int64{{0}, {-2000}, {-2000}, {0}})
	assert.Equal(t, matrix.Reasons, [][]shared.Reason{{shared.NoReason}, {shared.ShortEntry},
		{shared.NoReason}, {shared.TargetHit}})

	trades := matrix.Trades(frame, shared.Close)
	assert.Equal(t, len(trades), 2)
	assert.Equal(t, trades[1].Price, 50.6)
}

func TestRunIdempotent(t *testing.T) {
	markets := []string{"SPY", "QQQ", "DIA"}

	for _, kind := range []strategy.Kind{strategy.ADXKind, strategy.MACDKind} {
		frame := swingFrame(t, 200, markets, []float64{0, 1.5, 3})

		// Ensure identical inputs produce identical decisions, regardless of concurrency.
		first, err := setupEngine(t, kind, 0).Run(frame, markets)
		assert.NoError(t, err)
		checkMatrix(t, first)

		second, err := setupEngine(t, kind, 0).Run(frame, markets)
		assert.NoError(t, err)

		sequential, err := setupEngine(t, kind, 1).Run(frame, markets)
		assert.NoError(t, err)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("%s: repeated run mismatch (-first +second):\n%s", kind, diff)
		}
		if diff := cmp.Diff(first, sequential); diff != "" {
			t.Errorf("%s: sequential run mismatch (-first +sequential):\n%s", kind, diff)
		}
	}
}

func TestRunIndependentMarkets(t *testing.T) {
	eng := setupEngine(t, strategy.MACDKind, 4)

	// Ensure markets with identical data produce identical decisions.
	markets := []string{"SPY", "QQQ", "SPY2"}
	frame := swingFrame(t, 200, markets, []float64{0, 2, 0})

	matrix, err := eng.Run(frame, markets)
	assert.NoError(t, err)
	checkMatrix(t, matrix)

	var trades int
	for row := range matrix.Actions {
		assert.Equal(t, matrix.Decision(row, 0), matrix.Decision(row, 2))
		assert.Equal(t, matrix.Positions[row][0], matrix.Positions[row][2])
		if matrix.Actions[row][1] != shared.NoAction {
			trades++
		}
	}
	assert.GreaterThan(t, trades, 0)

	// Ensure a market's decisions do not depend on the markets run alongside it.
	solo, err := eng.Run(frame, []string{"QQQ"})
	assert.NoError(t, err)
	for row := range solo.Actions {
		assert.Equal(t, solo.Decision(row, 0), matrix.Decision(row, 1))
	}

	// Ensure indicator columns are added to the frame.
	assert.True(t, frame.HasColumn("SPY", indicator.MACDColumn))
	assert.True(t, frame.HasColumn("QQQ", indicator.MACDSignalColumn))

	// Ensure an empty universe produces an empty matrix.
	empty, err := eng.Run(frame, nil)
	assert.NoError(t, err)
	assert.Equal(t, len(empty.Markets), 0)
	assert.Equal(t, len(empty.Actions), 200)
}
