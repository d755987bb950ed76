package sampler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"hostmon/pkg/models"
)

var errCounterRead = errors.New("counter read failed")

// fakeSource hands out a fixed script of CPU snapshots.
// Read i reports busy = i*i and idle = 10*i on every core.
type fakeSource struct {
	mu       sync.Mutex
	reads    int
	cores    int
	failAt   map[int]bool
	memory   *MemoryCounters
	memErr   error
	memReads int
}

func newFakeSource(cores int) *fakeSource {
	return &fakeSource{
		cores:  cores,
		failAt: make(map[int]bool),
		memory: &MemoryCounters{
			Total:     8_000_000_000,
			Used:      4_000_000_000,
			Free:      3_000_000_000,
			Available: 4_000_000_000,
		},
	}
}

func scriptedTimes(i int) CPUTimes {
	return CPUTimes{Busy: float64(i * i), Idle: float64(10 * i)}
}

// expectedAverage is the utilization between read i-1 and read i.
func expectedAverage(i int) models.Percent {
	busy := float64(2*i - 1)
	return models.ClampPercent(busy / (busy + 10) * 100)
}

func (f *fakeSource) CPUCounters(_ context.Context) (*CPUCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.reads
	f.reads++
	if f.failAt[i] {
		return nil, errCounterRead
	}

	counters := &CPUCounters{
		Aggregate: scriptedTimes(i),
		PerCore:   make([]CPUTimes, f.cores),
	}
	for c := range counters.PerCore {
		counters.PerCore[c] = scriptedTimes(i)
	}
	return counters, nil
}

func (f *fakeSource) MemoryCounters(_ context.Context) (*MemoryCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.memReads++
	if f.memErr != nil {
		return nil, f.memErr
	}
	copied := *f.memory
	return &copied, nil
}

func (f *fakeSource) cpuReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// SamplerTestSuite tests the stateful sampler
type SamplerTestSuite struct {
	suite.Suite
	ctx    context.Context
	source *fakeSource
	opts   Options
}

// SetupTest runs before each test
func (s *SamplerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.source = newFakeSource(4)
	s.opts = DefaultOptions()
	s.opts.PrimeInterval = time.Millisecond
}

// TestNewPrimesBaseline tests that construction takes the first snapshot
func (s *SamplerTestSuite) TestNewPrimesBaseline() {
	smp := New(s.ctx, s.source, s.opts)
	s.Equal(1, s.source.cpuReads())
	s.NotNil(smp.baseline)
}

// TestNewDefaultsPrimeInterval tests the prime interval fallback
func (s *SamplerTestSuite) TestNewDefaultsPrimeInterval() {
	smp := New(s.ctx, s.source, Options{CPULoad: true})
	s.Equal(DefaultPrimeInterval, smp.Options().PrimeInterval)
}

// TestConsecutiveSamplesChainBaseline tests two rapid calls against the stored baseline
func (s *SamplerTestSuite) TestConsecutiveSamplesChainBaseline() {
	smp := New(s.ctx, s.source, s.opts)

	first, err := smp.SampleCPU(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(first.Load)
	s.Equal(expectedAverage(1), first.Load.Average)

	second, err := smp.SampleCPU(s.ctx)
	s.Require().NoError(err)
	s.Equal(expectedAverage(2), second.Load.Average)

	s.Len(second.Load.PerCore, 4)
	for _, core := range second.Load.PerCore {
		s.Equal(expectedAverage(2), core)
		s.GreaterOrEqual(core.Float64(), 0.0)
		s.LessOrEqual(core.Float64(), 100.0)
	}
}

// TestFailedPrimeUsesForcedWait tests the baseline synthesized on the first call
func (s *SamplerTestSuite) TestFailedPrimeUsesForcedWait() {
	s.source.failAt[0] = true
	smp := New(s.ctx, s.source, s.opts)
	s.Nil(smp.baseline)

	metrics, err := smp.SampleCPU(s.ctx)
	s.Require().NoError(err)
	// read 1 primes, read 2 measures
	s.Equal(3, s.source.cpuReads())
	s.Equal(expectedAverage(2), metrics.Load.Average)
}

// TestReadFailureReplacesBaseline tests that a failed read drops the baseline
func (s *SamplerTestSuite) TestReadFailureReplacesBaseline() {
	s.source.failAt[1] = true
	smp := New(s.ctx, s.source, s.opts)

	_, err := smp.SampleCPU(s.ctx)
	s.ErrorIs(err, ErrSamplerUnavailable)
	s.ErrorIs(err, errCounterRead)
	s.Nil(smp.baseline)

	// Reads 2 (prime) and 3 (measure): never measured against the stale read 0.
	metrics, err := smp.SampleCPU(s.ctx)
	s.Require().NoError(err)
	s.Equal(expectedAverage(3), metrics.Load.Average)
}

// TestPrimeFailure tests that a failed prime is reported
func (s *SamplerTestSuite) TestPrimeFailure() {
	s.source.failAt[0] = true
	s.source.failAt[1] = true
	smp := New(s.ctx, s.source, s.opts)

	metrics, err := smp.SampleCPU(s.ctx)
	s.Nil(metrics)
	s.ErrorIs(err, ErrSamplerUnavailable)
}

// TestPrimeCancelled tests that the forced wait honors the context
func (s *SamplerTestSuite) TestPrimeCancelled() {
	s.source.failAt[0] = true
	s.opts.PrimeInterval = time.Hour
	smp := New(s.ctx, s.source, s.opts)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := smp.SampleCPU(ctx)
	s.ErrorIs(err, ErrSamplerUnavailable)
	s.ErrorIs(err, context.Canceled)
	s.NotNil(smp.baseline)
}

// TestLoadDisabled tests that disabled collection touches no counters
func (s *SamplerTestSuite) TestLoadDisabled() {
	s.opts.CPULoad = false
	smp := New(s.ctx, s.source, s.opts)

	metrics, err := smp.SampleCPU(s.ctx)
	s.NoError(err)
	s.Nil(metrics.Load)
	s.Equal(0, s.source.cpuReads())
}

// TestPerCoreDisabled tests that per-core values are omitted
func (s *SamplerTestSuite) TestPerCoreDisabled() {
	s.opts.PerCore = false
	smp := New(s.ctx, s.source, s.opts)

	metrics, err := smp.SampleCPU(s.ctx)
	s.Require().NoError(err)
	s.Nil(metrics.Load.PerCore)
}

// TestCoreHotplug tests cores that have no baseline yet
func (s *SamplerTestSuite) TestCoreHotplug() {
	smp := New(s.ctx, s.source, s.opts)
	s.source.mu.Lock()
	s.source.cores = 6
	s.source.mu.Unlock()

	metrics, err := smp.SampleCPU(s.ctx)
	s.Require().NoError(err)
	s.Len(metrics.Load.PerCore, 6)
	s.Equal(models.Percent(0), metrics.Load.PerCore[5])
}

// TestUtilizationZeroElapsed tests identical snapshots
func (s *SamplerTestSuite) TestUtilizationZeroElapsed() {
	times := CPUTimes{Busy: 5, Idle: 5}
	s.Equal(models.Percent(0), utilization(times, times))
	s.Equal(models.Percent(100), utilization(CPUTimes{Busy: 1}, CPUTimes{Busy: 3}))
}

// TestConcurrentSamplesNeverTearBaseline tests chained deltas under concurrency
func (s *SamplerTestSuite) TestConcurrentSamplesNeverTearBaseline() {
	const callers = 64
	smp := New(s.ctx, s.source, s.opts)

	results := make([]float64, callers)
	var waitGroup sync.WaitGroup
	for i := 0; i < callers; i++ {
		waitGroup.Add(1)
		go func(idx int) {
			defer waitGroup.Done()
			metrics, err := smp.SampleCPU(s.ctx)
			if err != nil {
				results[idx] = -1
				return
			}
			results[idx] = metrics.Load.Average.Float64()
		}(i)
	}
	waitGroup.Wait()

	// Each read i is diffed against read i-1 exactly once.
	expected := make([]float64, callers)
	for i := range expected {
		expected[i] = expectedAverage(i + 1).Float64()
	}
	sort.Float64s(results)
	sort.Float64s(expected)
	s.Equal(expected, results)
}

// TestSampleMemory tests perc_used on injected counters
func (s *SamplerTestSuite) TestSampleMemory() {
	smp := New(s.ctx, s.source, s.opts)

	metrics, err := smp.SampleMemory(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Percent(50), metrics.PercUsed)
	s.Require().NotNil(metrics.Detailed)
	s.Equal(uint64(8_000_000_000), metrics.Detailed.Total)
	s.Equal(uint64(4_000_000_000), metrics.Detailed.Used)
	s.Equal(uint64(3_000_000_000), metrics.Detailed.Free)
}

// TestSampleMemoryDetailedDisabled tests the optional detailed section
func (s *SamplerTestSuite) TestSampleMemoryDetailedDisabled() {
	s.opts.MemoryDetailed = false
	smp := New(s.ctx, s.source, s.opts)

	metrics, err := smp.SampleMemory(s.ctx)
	s.Require().NoError(err)
	s.Nil(metrics.Detailed)
}

// TestSampleMemoryErrors tests failed and inconsistent memory reads
func (s *SamplerTestSuite) TestSampleMemoryErrors() {
	smp := New(s.ctx, s.source, s.opts)

	s.source.memErr = errCounterRead
	_, err := smp.SampleMemory(s.ctx)
	s.ErrorIs(err, ErrSamplerUnavailable)

	s.source.memErr = nil
	for _, counters := range []MemoryCounters{
		{Total: 0},
		{Total: 10, Used: 11},
		{Total: 10, Free: 11},
		{Total: 10, Available: 11},
	} {
		bad := counters
		s.source.memory = &bad
		_, err = smp.SampleMemory(s.ctx)
		s.ErrorIs(err, ErrSamplerUnavailable, "counters %+v", bad)
	}
}

// TestSampleMemoryIsLockFree tests memory sampling while the CPU lock is held
func (s *SamplerTestSuite) TestSampleMemoryIsLockFree() {
	smp := New(s.ctx, s.source, s.opts)

	smp.mu.Lock()
	defer smp.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := smp.SampleMemory(s.ctx)
		done <- err
	}()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("memory sampling blocked on the cpu baseline lock")
	}
}

// TestBuildMetrics tests the full snapshot assembly
func (s *SamplerTestSuite) TestBuildMetrics() {
	smp := New(s.ctx, s.source, s.opts)

	metrics, err := BuildMetrics(s.ctx, smp)
	s.Require().NoError(err)
	s.NotNil(metrics.CPU.Load)
	s.Equal(models.Percent(50), metrics.Memory.PercUsed)
}

// TestBuildMetricsFailsWhole tests that a failed sub-sample fails the snapshot
func (s *SamplerTestSuite) TestBuildMetricsFailsWhole() {
	smp := New(s.ctx, s.source, s.opts)

	s.source.memErr = errCounterRead
	metrics, err := BuildMetrics(s.ctx, smp)
	s.Nil(metrics)
	s.ErrorIs(err, ErrSamplerUnavailable)

	s.source.memErr = nil
	s.source.failAt[s.source.cpuReads()] = true
	metrics, err = BuildMetrics(s.ctx, smp)
	s.Nil(metrics)
	s.ErrorIs(err, ErrSamplerUnavailable)
}

// TestSamplerSuite runs the sampler test suite
func TestSamplerSuite(t *testing.T) {
	suite.Run(t, new(SamplerTestSuite))
}
