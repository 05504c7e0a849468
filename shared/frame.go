package shared

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

const (
	// VolumeColumn is the column name for candlestick volumes.
	VolumeColumn = "volume"
)

// ColumnName returns the frame column name of the provided market column.
func ColumnName(market string, column string) string {
	return market + "_" + column
}

// Frame represents time indexed market data columns aligned to a shared index.
type Frame struct {
	index      []time.Time
	columns    map[string][]float64
	columnsMtx sync.RWMutex
}

// NewFrame initializes a frame over the provided time index.
func NewFrame(index []time.Time) (*Frame, error) {
	for idx := 1; idx < len(index); idx++ {
		if !index[idx].After(index[idx-1]) {
			return nil, fmt.Errorf("time index is not strictly increasing at position %d (%s)",
				idx, index[idx].Format(DateTimeLayout))
		}
	}

	return &Frame{
		index:   index,
		columns: make(map[string][]float64),
	}, nil
}

// Index returns the time index of the frame.
func (f *Frame) Index() []time.Time {
	return f.index
}

// Len returns the number of rows in the frame.
func (f *Frame) Len() int {
	return len(f.index)
}

// SetColumn sets the values of the provided market column, replacing existing values.
func (f *Frame) SetColumn(market string, column string, values []float64) error {
	if len(values) != len(f.index) {
		return fmt.Errorf("column %s has %d values, expected %d",
			ColumnName(market, column), len(values), len(f.index))
	}

	f.columnsMtx.Lock()
	f.columns[ColumnName(market, column)] = values
	f.columnsMtx.Unlock()

	return nil
}

// Column returns the values of the provided market column.
func (f *Frame) Column(market string, column string) ([]float64, bool) {
	f.columnsMtx.RLock()
	defer f.columnsMtx.RUnlock()

	values, ok := f.columns[ColumnName(market, column)]
	return values, ok
}

// HasColumn checks whether the provided market column exists.
func (f *Frame) HasColumn(market string, column string) bool {
	_, ok := f.Column(market, column)
	return ok
}

// FillRollingMean fills undefined values of every column with the mean of the defined values
// in the trailing window ending at the undefined value. It returns the number of filled values.
func (f *Frame) FillRollingMean(window int) int {
	if window <= 0 {
		return 0
	}

	f.columnsMtx.Lock()
	defer f.columnsMtx.Unlock()

	var filled int
	for name, values := range f.columns {
		out := slices.Clone(values)
		for idx := range values {
			if !math.IsNaN(values[idx]) {
				continue
			}

			var sum float64
			var count int
			for j := max(0, idx-window+1); j <= idx; j++ {
				if !math.IsNaN(values[j]) {
					sum += values[j]
					count++
				}
			}

			if count > 0 {
				out[idx] = sum / float64(count)
				filled++
			}
		}
		f.columns[name] = out
	}

	return filled
}

// NewFrameFromCandlesticks aligns the candlesticks of the provided markets on the union of
// their dates. Dates a market has no candlestick for are undefined (NaN) in its columns.
// Duplicate dates for a market keep the first candlestick.
func NewFrameFromCandlesticks(markets []string, candles map[string][]Candlestick) (*Frame, error) {
	seen := make(map[time.Time]struct{})
	index := []time.Time{}
	for _, market := range markets {
		for idx := range candles[market] {
			date := candles[market][idx].Date
			if _, ok := seen[date]; ok {
				continue
			}
			seen[date] = struct{}{}
			index = append(index, date)
		}
	}

	slices.SortFunc(index, func(a, b time.Time) int {
		return a.Compare(b)
	})

	frame, err := NewFrame(index)
	if err != nil {
		return nil, err
	}

	positions := make(map[time.Time]int, len(index))
	for idx := range index {
		positions[index[idx]] = idx
	}

	for _, market := range markets {
		set, ok := candles[market]
		if !ok {
			// Markets without data are left out so validation can name the missing columns.
			continue
		}

		columns := make(map[PriceField][]float64, len(PriceFields))
		for _, field := range PriceFields {
			columns[field] = nanSeries(len(index))
		}
		volume := nanSeries(len(index))
		filled := make([]bool, len(index))

		for idx := range set {
			pos := positions[set[idx].Date]
			if filled[pos] {
				continue
			}
			filled[pos] = true

			for _, field := range PriceFields {
				columns[field][pos] = set[idx].Price(field)
			}
			volume[pos] = set[idx].Volume
		}

		for _, field := range PriceFields {
			err := frame.SetColumn(market, field.String(), columns[field])
			if err != nil {
				return nil, err
			}
		}
		err := frame.SetColumn(market, VolumeColumn, volume)
		if err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// nanSeries returns a series of the provided length with every value undefined.
func nanSeries(n int) []float64 {
	series := make([]float64, n)
	for idx := range series {
		series[idx] = math.NaN()
	}

	return series
}
