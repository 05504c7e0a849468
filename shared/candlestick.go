package shared

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// PriceField represents the candlestick field used as the trading price.
type PriceField int

const (
	Close PriceField = iota
	Open
	High
	Low
	AdjClose
)

// String stringifies the provided price field.
func (f PriceField) String() string {
	switch f {
	case Close:
		return "close"
	case Open:
		return "open"
	case High:
		return "high"
	case Low:
		return "low"
	case AdjClose:
		return "adjclose"
	default:
		return "unknown"
	}
}

// PriceFields lists every supported price field.
var PriceFields = []PriceField{Open, High, Low, Close, AdjClose}

// ParsePriceField parses the provided price field name.
func ParsePriceField(name string) (PriceField, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "close":
		return Close, nil
	case "open":
		return Open, nil
	case "high":
		return High, nil
	case "low":
		return Low, nil
	case "adjclose", "adj_close":
		return AdjClose, nil
	default:
		return Close, fmt.Errorf("unknown price field provided: %s", name)
	}
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open     float64
	Low      float64
	High     float64
	Close    float64
	AdjClose float64
	Volume   float64
	Date     time.Time

	// Metadata.
	Market string
}

// Price returns the candlestick value for the provided price field.
func (c *Candlestick) Price(field PriceField) float64 {
	switch field {
	case Open:
		return c.Open
	case High:
		return c.High
	case Low:
		return c.Low
	case AdjClose:
		return c.AdjClose
	default:
		return c.Close
	}
}

// fetchFloat returns the float value at the provided path, NaN if it is missing or null.
func fetchFloat(data gjson.Result, path string) float64 {
	res := data.Get(path)
	if !res.Exists() || res.Type == gjson.Null {
		return math.NaN()
	}

	return res.Float()
}

// ParseCandlesticks parses candlesticks from the provided json data.
func ParseCandlesticks(data []gjson.Result, market string, loc *time.Location) ([]Candlestick, error) {
	candles := make([]Candlestick, 0, len(data))

	for idx := range data {
		var candle Candlestick

		candle.Open = fetchFloat(data[idx], "open")
		candle.Low = fetchFloat(data[idx], "low")
		candle.High = fetchFloat(data[idx], "high")
		candle.Close = fetchFloat(data[idx], "close")
		candle.Volume = fetchFloat(data[idx], "volume")
		candle.AdjClose = fetchFloat(data[idx], "adjClose")
		if math.IsNaN(candle.AdjClose) {
			candle.AdjClose = candle.Close
		}

		candle.Market = market

		dt, err := ParseDate(data[idx].Get("date").String(), loc)
		if err != nil {
			return nil, fmt.Errorf("parsing candlestick date for %s: %w", market, err)
		}

		candle.Date = dt
		candles = append(candles, candle)
	}

	return candles, nil
}
