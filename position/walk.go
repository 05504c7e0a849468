package position

import (
	"github.com/dnldd/trendsignal/shared"
)

// SnapshotFunc returns the indicator snapshot of a market at the provided step.
type SnapshotFunc func(idx int) shared.Snapshot

// Summary represents the trading activity of a walk.
type Summary struct {
	LongEntries      int
	ShortEntries     int
	TargetExits      int
	StopExits        int
	ZeroShareEntries int
	OpenAtEnd        bool
}

// Entries returns the total number of entries taken.
func (s Summary) Entries() int {
	return s.LongEntries + s.ShortEntries
}

// record accounts for the provided decision.
func (s *Summary) record(decision shared.Decision) {
	switch decision.Reason {
	case shared.LongEntry:
		s.LongEntries++
	case shared.ShortEntry:
		s.ShortEntries++
	case shared.TargetHit:
		s.TargetExits++
	case shared.StopLoss:
		s.StopExits++
	}

	if (decision.Reason == shared.LongEntry || decision.Reason == shared.ShortEntry) &&
		decision.Shares == 0 {
		s.ZeroShareEntries++
	}
}

// Track represents the per step outcome of a walk.
type Track struct {
	Decisions []shared.Decision
	// Positions holds the signed position carried after each step.
	Positions []int64
	Summary   Summary
}

// Walk resets the provided position and steps it through the provided prices. The first
// step is inert. The intent is only evaluated while the position is flat.
func Walk(pos *Position, prices []float64, snapshotAt SnapshotFunc, intent shared.Intent, rules Rules) Track {
	pos.Reset()

	track := Track{
		Decisions: make([]shared.Decision, len(prices)),
		Positions: make([]int64, len(prices)),
	}

	for idx := 1; idx < len(prices); idx++ {
		direction := shared.None
		if pos.Status == Flat && tradable(prices[idx]) {
			direction = intent.Evaluate(snapshotAt(idx))
		}

		decision := pos.Step(idx, prices[idx], direction, rules)
		track.Decisions[idx] = decision
		track.Positions[idx] = pos.Shares
		track.Summary.record(decision)
	}

	track.Summary.OpenAtEnd = pos.IsOpen()

	return track
}
