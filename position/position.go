package position

import (
	"math"

	"github.com/dnldd/trendsignal/shared"
)

// Status represents the state of a position.
type Status int

const (
	Flat Status = iota
	OpenLong
	OpenShort
)

// String stringifies the provided position status.
func (s Status) String() string {
	switch s {
	case Flat:
		return "flat"
	case OpenLong:
		return "open long"
	case OpenShort:
		return "open short"
	default:
		return "unknown"
	}
}

// Position represents the trading state of a single market.
type Position struct {
	Market string
	Status Status
	// Shares is the signed position size, negative when short.
	Shares     int64
	EntryPrice float64
	// EntryIndex is the step the position was opened at. It is tracked but no exit rule
	// reads it.
	EntryIndex int
	PNLPercent float64
}

// NewPosition initializes a flat position for the provided market.
func NewPosition(market string) *Position {
	p := &Position{Market: market}
	p.Reset()

	return p
}

// Reset returns the position to its flat state.
func (p *Position) Reset() {
	p.Status = Flat
	p.Shares = 0
	p.EntryPrice = 0
	p.EntryIndex = -1
	p.PNLPercent = 0
}

// IsOpen checks whether the position is open.
func (p *Position) IsOpen() bool {
	return p.Status != Flat
}

// ReturnPercent returns the raw percentage change of the provided price relative to the
// entry price. The change is not adjusted for the position's direction.
func (p *Position) ReturnPercent(price float64) float64 {
	return 100 * (price - p.EntryPrice) / p.EntryPrice
}

// tradable checks whether a trade can be taken at the provided price. Undefined, zero and
// negative prices are not tradable.
func tradable(price float64) bool {
	return !math.IsNaN(price) && price > 0
}

// Step advances the position by a single step given the price and the directional intent
// at that step. Exits are evaluated before entries, an open position ignores the intent.
func (p *Position) Step(idx int, price float64, intent shared.Direction, rules Rules) shared.Decision {
	if !tradable(price) {
		return shared.Decision{}
	}

	switch p.Status {
	case Flat:
		return p.enter(idx, price, intent, rules)
	default:
		return p.exit(price, rules)
	}
}

// enter opens a position in the direction of the provided intent.
func (p *Position) enter(idx int, price float64, intent shared.Direction, rules Rules) shared.Decision {
	var action shared.Action
	var reason shared.Reason
	var status Status

	switch intent {
	case shared.Long:
		action, reason, status = shared.Buy, shared.LongEntry, OpenLong
	case shared.Short:
		action, reason, status = shared.Sell, shared.ShortEntry, OpenShort
	default:
		return shared.Decision{}
	}

	shares := rules.Shares(price)

	p.Status = status
	p.EntryPrice = price
	p.EntryIndex = idx
	p.PNLPercent = 0
	p.Shares = shares
	if status == OpenShort {
		p.Shares = -shares
	}

	return shared.NewDecision(action, shares, reason)
}

// exit closes the full position if the return at the provided price crosses either the
// target gain or the maximum loss.
func (p *Position) exit(price float64, rules Rules) shared.Decision {
	ret := p.ReturnPercent(price)
	p.PNLPercent = ret

	var reason shared.Reason
	switch {
	case ret >= rules.TargetGainPercent:
		reason = shared.TargetHit
	case ret < rules.MaxLossPercent:
		reason = shared.StopLoss
	default:
		return shared.Decision{}
	}

	action := shared.Sell
	if p.Status == OpenShort {
		action = shared.Buy
	}

	shares := p.Shares
	if shares < 0 {
		shares = -shares
	}

	p.Reset()

	return shared.NewDecision(action, shares, reason)
}
