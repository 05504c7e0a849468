package shared

// Direction represents the directional intent derived from an indicator snapshot.
type Direction int

const (
	None Direction = iota
	Long
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// Action represents a trade action.
type Action int

const (
	NoAction Action = iota
	Buy
	Sell
)

// String stringifies the provided action.
func (a Action) String() string {
	switch a {
	case NoAction:
		return "NONE"
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "unknown"
	}
}

// Signal returns the trade signal associated with the action.
func (a Action) Signal() int8 {
	switch a {
	case Buy:
		return 1
	case Sell:
		return -1
	default:
		return 0
	}
}

// Reason represents the reason a trade decision was taken.
type Reason int

const (
	NoReason Reason = iota
	LongEntry
	ShortEntry
	TargetHit
	StopLoss
)

// String stringifies the provided reason.
func (r Reason) String() string {
	switch r {
	case NoReason:
		return "none"
	case LongEntry:
		return "long entry"
	case ShortEntry:
		return "short entry"
	case TargetHit:
		return "target hit"
	case StopLoss:
		return "stop loss"
	default:
		return "unknown"
	}
}

// Decision represents the outcome of a single state machine step.
type Decision struct {
	Signal int8
	Action Action
	Shares int64
	Reason Reason
}

// NewDecision initializes a decision for the provided action, deriving its signal.
func NewDecision(action Action, shares int64, reason Reason) Decision {
	return Decision{
		Signal: action.Signal(),
		Action: action,
		Shares: shares,
		Reason: reason,
	}
}
