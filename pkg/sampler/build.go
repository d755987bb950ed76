package sampler

import (
	"context"

	"hostmon/pkg/models"
)

// BuildMetrics takes one CPU and one memory sample. If either fails the whole
// snapshot fails.
func BuildMetrics(ctx context.Context, smp MetricsSampler) (*models.Metrics, error) {
	cpuMetrics, err := smp.SampleCPU(ctx)
	if err != nil {
		return nil, err
	}

	memoryMetrics, err := smp.SampleMemory(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Metrics{
		CPU:    *cpuMetrics,
		Memory: *memoryMetrics,
	}, nil
}
