package calculator

import "errors"

var (
	// ErrInsufficientData means the indicator is undefined for the given input.
	ErrInsufficientData = errors.New("not enough data")
	// ErrInvalidPeriod is returned for non-positive periods or windows.
	ErrInvalidPeriod = errors.New("period must be positive")
	// ErrZeroAverage means a distance cannot be expressed relative to the average.
	ErrZeroAverage = errors.New("average is zero")
)
