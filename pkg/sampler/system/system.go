// Package system reads host counters through gopsutil.
package system

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"hostmon/pkg/sampler"
)

// Source is a sampler.CounterSource backed by the running host.
type Source struct{}

// New returns a Source for the local host.
func New() *Source {
	return &Source{}
}

// CPUCounters reads aggregated and per logical core CPU times.
func (src *Source) CPUCounters(ctx context.Context) (*sampler.CPUCounters, error) {
	aggregate, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(aggregate) == 0 {
		return nil, fmt.Errorf("no aggregate cpu times reported")
	}

	perCore, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	counters := &sampler.CPUCounters{
		Aggregate: toCPUTimes(aggregate[0]),
		PerCore:   make([]sampler.CPUTimes, len(perCore)),
	}
	for i, core := range perCore {
		counters.PerCore[i] = toCPUTimes(core)
	}

	return counters, nil
}

// MemoryCounters reads virtual memory statistics.
func (src *Source) MemoryCounters(ctx context.Context) (*sampler.MemoryCounters, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return &sampler.MemoryCounters{
		Total:     vmem.Total,
		Used:      vmem.Used,
		Free:      vmem.Free,
		Available: vmem.Available,
	}, nil
}

// toCPUTimes splits gopsutil times into busy and idle. Iowait counts as idle.
func toCPUTimes(stat cpu.TimesStat) sampler.CPUTimes {
	idle := stat.Idle + stat.Iowait
	busy := stat.User + stat.Nice + stat.System + stat.Irq + stat.Softirq + stat.Steal

	return sampler.CPUTimes{Busy: busy, Idle: idle}
}
