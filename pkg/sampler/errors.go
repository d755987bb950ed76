package sampler

import "errors"

var (
	// ErrSamplerUnavailable is returned when OS counters cannot be read or are inconsistent.
	ErrSamplerUnavailable = errors.New("sampler unavailable")
)
