package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hostmon/pkg/log"
	"hostmon/pkg/models"
)

// DefaultPrimeInterval is the wait used to build a CPU baseline when none exists.
const DefaultPrimeInterval = 250 * time.Millisecond

// Options selects which optional metrics are collected.
type Options struct {
	CPULoad        bool
	PerCore        bool
	MemoryDetailed bool
	// PrimeInterval is the forced wait between the two snapshots taken when
	// SampleCPU runs without a baseline.
	PrimeInterval time.Duration
}

// DefaultOptions enables every metric.
func DefaultOptions() Options {
	return Options{
		CPULoad:        true,
		PerCore:        true,
		MemoryDetailed: true,
		PrimeInterval:  DefaultPrimeInterval,
	}
}

// MetricsSampler produces CPU and memory snapshots.
type MetricsSampler interface {
	SampleCPU(ctx context.Context) (*models.CPUMetrics, error)
	SampleMemory(ctx context.Context) (*models.MemoryMetrics, error)
}

// Sampler turns raw counters into metrics. CPU utilization is a rate, so the
// sampler keeps the previous CPU snapshot as a baseline. Only that baseline is
// shared state and mu guards it; memory sampling never takes the lock.
//
// First call policy: New primes the baseline. Whenever no baseline exists (a
// failed prime or a failed previous read), SampleCPU takes a snapshot, waits
// PrimeInterval and measures against it instead of reporting a meaningless delta.
type Sampler struct {
	source CounterSource
	opts   Options

	mu       sync.Mutex
	baseline *CPUCounters
}

// New creates a Sampler and primes its CPU baseline.
func New(ctx context.Context, source CounterSource, opts Options) *Sampler {
	if opts.PrimeInterval <= 0 {
		opts.PrimeInterval = DefaultPrimeInterval
	}

	smp := &Sampler{
		source: source,
		opts:   opts,
	}

	if opts.CPULoad {
		baseline, err := source.CPUCounters(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to prime CPU baseline")
		}
		smp.baseline = baseline
	}

	return smp
}

// Options returns the collection options of the sampler.
func (smp *Sampler) Options() Options {
	return smp.opts
}

// SampleCPU measures CPU utilization since the previous call.
func (smp *Sampler) SampleCPU(ctx context.Context) (*models.CPUMetrics, error) {
	if !smp.opts.CPULoad {
		return &models.CPUMetrics{}, nil
	}

	smp.mu.Lock()
	defer smp.mu.Unlock()

	if smp.baseline == nil {
		if err := smp.prime(ctx); err != nil {
			return nil, err
		}
	}

	current, err := smp.source.CPUCounters(ctx)
	previous := smp.baseline
	// The baseline is always replaced; after a failed read the next call re-primes.
	smp.baseline = current
	if err != nil {
		return nil, fmt.Errorf("%w: reading cpu counters: %w", ErrSamplerUnavailable, err)
	}

	load := &models.CPULoadMetric{
		Average: utilization(previous.Aggregate, current.Aggregate),
	}

	if smp.opts.PerCore {
		load.PerCore = make([]models.Percent, len(current.PerCore))
		for i, core := range current.PerCore {
			if i >= len(previous.PerCore) {
				continue
			}
			load.PerCore[i] = utilization(previous.PerCore[i], core)
		}
	}

	return &models.CPUMetrics{Load: load}, nil
}

// prime takes a first snapshot and waits so the next read has a usable delta.
// Callers hold mu.
func (smp *Sampler) prime(ctx context.Context) error {
	baseline, err := smp.source.CPUCounters(ctx)
	if err != nil {
		return fmt.Errorf("%w: priming cpu baseline: %w", ErrSamplerUnavailable, err)
	}
	smp.baseline = baseline

	log.Debug().Dur("prime_interval", smp.opts.PrimeInterval).Msg("Priming CPU baseline")

	timer := time.NewTimer(smp.opts.PrimeInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSamplerUnavailable, ctx.Err())
	}
}

// SampleMemory reads the current memory usage. It keeps no state.
func (smp *Sampler) SampleMemory(ctx context.Context) (*models.MemoryMetrics, error) {
	counters, err := smp.source.MemoryCounters(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading memory counters: %w", ErrSamplerUnavailable, err)
	}

	if counters.Total == 0 || counters.Used > counters.Total ||
		counters.Free > counters.Total || counters.Available > counters.Total {
		return nil, fmt.Errorf("%w: inconsistent memory counters (total=%d used=%d free=%d available=%d)",
			ErrSamplerUnavailable, counters.Total, counters.Used, counters.Free, counters.Available)
	}

	percUsed, err := models.PercentFromRatio(float64(counters.Used) / float64(counters.Total))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSamplerUnavailable, err)
	}

	metrics := &models.MemoryMetrics{PercUsed: percUsed}
	if smp.opts.MemoryDetailed {
		metrics.Detailed = &models.MemoryDetailedMetrics{
			Total:     counters.Total,
			Used:      counters.Used,
			Free:      counters.Free,
			Available: counters.Available,
		}
	}

	return metrics, nil
}

// utilization is the busy share of the time elapsed between two snapshots.
func utilization(previous, current CPUTimes) models.Percent {
	elapsed := current.Total() - previous.Total()
	if elapsed <= 0 {
		return 0
	}

	return models.ClampPercent((current.Busy - previous.Busy) / elapsed * models.MaxPercent)
}
