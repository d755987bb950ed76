package models

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MaxPercent is the upper bound of a Percent.
	MaxPercent = 100
	// percentScale rounds Percent values to two decimals.
	percentScale = 100
)

// ErrPercentOutOfRange is returned when a value cannot be represented as a Percent.
var ErrPercentOutOfRange = errors.New("percent out of range")

// Percent is a utilization ratio in [0,100], rounded to two decimals.
type Percent float64

// NewPercent builds a Percent from an already scaled value.
func NewPercent(value float64) (Percent, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > MaxPercent {
		return 0, fmt.Errorf("%w: %v", ErrPercentOutOfRange, value)
	}

	return Percent(roundPercent(value)), nil
}

// PercentFromRatio builds a Percent from a ratio in [0,1].
func PercentFromRatio(ratio float64) (Percent, error) {
	return NewPercent(ratio * MaxPercent)
}

// ClampPercent forces a computed value into range. NaN becomes 0.
func ClampPercent(value float64) Percent {
	switch {
	case math.IsNaN(value), value < 0:
		return 0
	case value > MaxPercent:
		return MaxPercent
	}

	return Percent(roundPercent(value))
}

// Float64 returns the underlying value.
func (p Percent) Float64() float64 {
	return float64(p)
}

func roundPercent(value float64) float64 {
	return math.Round(value*percentScale) / percentScale
}
