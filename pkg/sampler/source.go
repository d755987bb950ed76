package sampler

import "context"

// CPUTimes holds cumulative CPU time in seconds.
type CPUTimes struct {
	Busy float64
	Idle float64
}

// Total returns busy plus idle time.
func (t CPUTimes) Total() float64 {
	return t.Busy + t.Idle
}

// CPUCounters is one snapshot of the host CPU counters.
type CPUCounters struct {
	Aggregate CPUTimes
	PerCore   []CPUTimes
}

// MemoryCounters is one snapshot of the host memory counters, in bytes.
type MemoryCounters struct {
	Total     uint64
	Used      uint64
	Free      uint64
	Available uint64
}

// CounterSource reads raw counters from the operating system.
type CounterSource interface {
	// CPUCounters returns the cumulative CPU times, aggregated and per logical core.
	CPUCounters(ctx context.Context) (*CPUCounters, error)

	// MemoryCounters returns the current memory counters.
	MemoryCounters(ctx context.Context) (*MemoryCounters, error)
}
