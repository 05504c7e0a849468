package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func TestHistoricData(t *testing.T) {
	// Ensure missing files are reported.
	_, err := NewHistoricData(&HistoricDataConfig{FilePath: "testdata/missing.json", Logger: &log.Logger})
	assert.Error(t, err)

	// Ensure malformed files are reported.
	dir := t.TempDir()
	for name, content := range map[string]string{
		"invalid.json": `{"SPY": [`,
		"array.json":   `[{"date": "2024-01-02"}]`,
		"market.json":  `{"SPY": {"date": "2024-01-02"}}`,
	} {
		path := filepath.Join(dir, name)
		assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		_, err = NewHistoricData(&HistoricDataConfig{FilePath: path, Logger: &log.Logger})
		assert.Error(t, err)
	}

	// Ensure historic data can be loaded.
	historicData, err := NewHistoricData(&HistoricDataConfig{
		FilePath: "testdata/history.json",
		Logger:   &log.Logger,
	})
	assert.NoError(t, err)
	assert.Equal(t, historicData.Markets(), []string{"QQQ", "SPY"})

	// Ensure the full history is returned for an open range.
	ctx := context.Background()
	data, err := historicData.FetchDailyHistorical(ctx, "SPY", time.Time{}, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, len(data), 6)

	// Ensure history can be limited to a range.
	start := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	data, err = historicData.FetchDailyHistorical(ctx, "SPY", start, end)
	assert.NoError(t, err)
	assert.Equal(t, len(data), 4)

	data, err = historicData.FetchDailyHistorical(ctx, "QQQ", start, time.Time{})
	assert.NoError(t, err)
	assert.Equal(t, len(data), 3)

	// Ensure unknown markets are reported as having no data.
	_, err = historicData.FetchDailyHistorical(ctx, "DIA", start, end)
	assert.True(t, errors.Is(err, ErrNoData))
}
