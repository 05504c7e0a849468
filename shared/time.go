package shared

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the format layout for parsing daily dates.
	DateLayout = "2006-01-02"
	// DateTimeLayout is the format layout for parsing intraday dates.
	DateTimeLayout = "2006-01-02 15:04:05"
	// NewYorkLocation is the time zone the markets are tracked in.
	NewYorkLocation = "America/New_York"
)

// NewYorkTime returns the current time in new york (EST/EDT adjusted automatically).
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}

// ParseDate parses daily or intraday dates in the provided location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	layout := DateLayout
	if len(value) > len(DateLayout) {
		layout = DateTimeLayout
	}

	dt, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date '%s': %w", value, err)
	}

	return dt, nil
}
