package shared

import (
	"math"
	"time"
)

// Matrix represents the trade decisions of a run, shaped time x market.
type Matrix struct {
	Index   []time.Time
	Markets []string

	// Signals holds the trade signals (-1, 0, 1).
	Signals [][]int8
	// Actions holds the trade actions.
	Actions [][]Action
	// Shares holds the unsigned share counts traded.
	Shares [][]int64
	// Positions holds the signed position carried after each step.
	Positions [][]int64
	// Reasons holds the reason each decision was taken.
	Reasons [][]Reason
}

// NewMatrix initializes an inert matrix for the provided index and markets.
func NewMatrix(index []time.Time, markets []string) *Matrix {
	rows := len(index)
	cols := len(markets)

	m := &Matrix{
		Index:     index,
		Markets:   markets,
		Signals:   make([][]int8, rows),
		Actions:   make([][]Action, rows),
		Shares:    make([][]int64, rows),
		Positions: make([][]int64, rows),
		Reasons:   make([][]Reason, rows),
	}

	for idx := 0; idx < rows; idx++ {
		m.Signals[idx] = make([]int8, cols)
		m.Actions[idx] = make([]Action, cols)
		m.Shares[idx] = make([]int64, cols)
		m.Positions[idx] = make([]int64, cols)
		m.Reasons[idx] = make([]Reason, cols)
	}

	return m
}

// Set records the provided decision and resulting position at the provided cell.
func (m *Matrix) Set(row int, col int, decision Decision, position int64) {
	m.Signals[row][col] = decision.Signal
	m.Actions[row][col] = decision.Action
	m.Shares[row][col] = decision.Shares
	m.Reasons[row][col] = decision.Reason
	m.Positions[row][col] = position
}

// Decision returns the decision recorded at the provided cell.
func (m *Matrix) Decision(row int, col int) Decision {
	return Decision{
		Signal: m.Signals[row][col],
		Action: m.Actions[row][col],
		Shares: m.Shares[row][col],
		Reason: m.Reasons[row][col],
	}
}

// Column returns the column position of the provided market, -1 if it is not tracked.
func (m *Matrix) Column(market string) int {
	for idx := range m.Markets {
		if m.Markets[idx] == market {
			return idx
		}
	}

	return -1
}

// Trade represents a single actioned matrix cell.
type Trade struct {
	Market string
	Date   time.Time
	Index  int
	Action Action
	Signal int8
	Shares int64
	Price  float64
	Reason Reason
}

// Trades flattens every actioned cell of the matrix into trades in time then market order.
// Prices are taken from the provided frame's price field column, undefined if unavailable.
func (m *Matrix) Trades(frame *Frame, field PriceField) []Trade {
	prices := make([][]float64, len(m.Markets))
	if frame != nil {
		for col := range m.Markets {
			prices[col], _ = frame.Column(m.Markets[col], field.String())
		}
	}

	trades := []Trade{}
	for row := range m.Actions {
		for col := range m.Actions[row] {
			if m.Actions[row][col] == NoAction {
				continue
			}

			price := math.NaN()
			if row < len(prices[col]) {
				price = prices[col][row]
			}

			trades = append(trades, Trade{
				Market: m.Markets[col],
				Date:   m.Index[row],
				Index:  row,
				Action: m.Actions[row][col],
				Signal: m.Signals[row][col],
				Shares: m.Shares[row][col],
				Price:  price,
				Reason: m.Reasons[row][col],
			})
		}
	}

	return trades
}
