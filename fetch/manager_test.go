package fetch

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/trendsignal/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// failingFetcher fails every fetch.
type failingFetcher struct{}

func (f *failingFetcher) FetchDailyHistorical(ctx context.Context, market string, start time.Time, end time.Time) ([]gjson.Result, error) {
	return nil, errors.New("unavailable")
}

func setupManager(t *testing.T, impute bool) *Manager {
	t.Helper()

	historicData, err := NewHistoricData(&HistoricDataConfig{
		FilePath: "testdata/history.json",
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)

	mgr, err := NewManager(&ManagerConfig{
		Fetcher:    historicData,
		Impute:     impute,
		MaxWorkers: 2,
		Logger:     &log.Logger,
	})
	assert.NoError(t, err)

	return mgr
}

func TestManagerConfigValidate(t *testing.T) {
	_, err := NewManager(&ManagerConfig{ImputeWindow: -1, MaxWorkers: -1})
	assert.Error(t, err)
	for _, want := range []string{"no market fetcher provided", "impute window cannot be negative",
		"max workers cannot be negative", "logger cannot be nil"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to contain %q, got %v", want, err)
		}
	}
}

func TestCleanCandlesticks(t *testing.T) {
	day := func(n int) time.Time {
		return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
	}

	candles := []shared.Candlestick{
		{Date: day(3), Close: 3},
		{Date: day(1), Close: 1},
		{Date: day(3), Close: 30},
		{Date: day(2), Close: -2, Volume: -1},
	}

	// Ensure candlesticks are ordered by date and repeated dates keep the first.
	cleaned, dropped := cleanCandlesticks(candles)
	assert.Equal(t, dropped, 1)
	assert.Equal(t, len(cleaned), 3)
	assert.Equal(t, cleaned[0].Close, float64(1))
	assert.Equal(t, cleaned[1].Close, float64(-2))
	assert.Equal(t, cleaned[2].Close, float64(3))

	// Ensure negative values are counted.
	assert.Equal(t, countNegatives(cleaned), 2)
}

func TestManagerFrame(t *testing.T) {
	ctx := context.Background()
	markets := []string{"SPY", "QQQ", "DIA"}

	// Ensure markets are aligned on the union of their dates.
	mgr := setupManager(t, false)
	frame, err := mgr.Frame(ctx, markets, time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, frame.Len(), 5)
	assert.Equal(t, frame.Index()[0].Format(shared.DateLayout), "2024-01-02")
	assert.Equal(t, frame.Index()[4].Format(shared.DateLayout), "2024-01-08")

	spy, ok := frame.Column("SPY", shared.Close.String())
	assert.True(t, ok)
	assert.Equal(t, spy, []float64{472.6, 471.0, 468.3, 467.9, 474.6})

	spyAdj, ok := frame.Column("SPY", shared.AdjClose.String())
	assert.True(t, ok)
	assert.Equal(t, spyAdj[0], 471.5)

	qqq, ok := frame.Column("QQQ", shared.Close.String())
	assert.True(t, ok)
	assert.Equal(t, qqq[0], 402.6)
	assert.True(t, math.IsNaN(qqq[1]))
	assert.True(t, math.IsNaN(qqq[2]))
	assert.Equal(t, qqq[3], 396.3)

	// Ensure markets without data are left out.
	assert.False(t, frame.HasColumn("DIA", shared.Close.String()))

	// Ensure missing values can be imputed.
	mgr = setupManager(t, true)
	frame, err = mgr.Frame(ctx, markets, time.Time{}, time.Time{})
	assert.NoError(t, err)

	qqq, ok = frame.Column("QQQ", shared.Close.String())
	assert.True(t, ok)
	assert.Equal(t, qqq, []float64{402.6, 402.6, 402.6, 396.3, 404.9})

	// Ensure the range is honoured.
	start := time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC)
	frame, err = mgr.Frame(ctx, markets, start, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, frame.Len(), 3)

	// Ensure fetch failures are reported.
	failing, err := NewManager(&ManagerConfig{Fetcher: &failingFetcher{}, Logger: &log.Logger})
	assert.NoError(t, err)
	_, err = failing.Frame(ctx, markets, time.Time{}, time.Time{})
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unavailable"))
}
