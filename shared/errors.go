package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a required column is not in the frame.
	ErrMissingColumn = errors.New("missing column")
	// ErrInsufficientHistory is returned when a series is too short to derive indicators from.
	ErrInsufficientHistory = errors.New("insufficient history")
)

// ConfigError represents a fatal configuration problem for a market.
type ConfigError struct {
	Market string
	Column string
	Err    error
}

// NewConfigError initializes a configuration error for the provided market and column.
func NewConfigError(market string, column string, err error) *ConfigError {
	return &ConfigError{
		Market: market,
		Column: column,
		Err:    err,
	}
}

// Error returns the error message.
func (e *ConfigError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%v for %s", e.Err, e.Market)
	}

	return fmt.Sprintf("%v: cannot find %s for %s", e.Err, ColumnName(e.Market, e.Column), e.Market)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
