package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"hostmon/pkg/models"
	"hostmon/pkg/sampler"
)

// getMetrics handles GET /metrics.
func (srv *AgentServer) getMetrics(ctx echo.Context) error {
	metrics, err := sampler.BuildMetrics(ctx.Request().Context(), srv.sampler)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, metrics)
}

// getCPU handles GET /metrics/cpu.
func (srv *AgentServer) getCPU(ctx echo.Context) error {
	cpuMetrics, err := srv.sampler.SampleCPU(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, cpuMetrics)
}

// cpuLoad samples the CPU and requires the optional load section.
func (srv *AgentServer) cpuLoad(ctx echo.Context) (*models.CPULoadMetric, error) {
	cpuMetrics, err := srv.sampler.SampleCPU(ctx.Request().Context())
	if err != nil {
		return nil, err
	}
	if cpuMetrics.Load == nil {
		return nil, metricUnavailable("cpu.load")
	}

	return cpuMetrics.Load, nil
}

// getCPULoad handles GET /metrics/cpu/load.
func (srv *AgentServer) getCPULoad(ctx echo.Context) error {
	load, err := srv.cpuLoad(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, load)
}

// getCPULoadAverage handles GET /metrics/cpu/load/average.
func (srv *AgentServer) getCPULoadAverage(ctx echo.Context) error {
	load, err := srv.cpuLoad(ctx)
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, load.Average)
}

// getCPULoadPerCore handles GET /metrics/cpu/load/per-core.
func (srv *AgentServer) getCPULoadPerCore(ctx echo.Context) error {
	load, err := srv.cpuLoad(ctx)
	if err != nil {
		return respondError(ctx, err)
	}
	if load.PerCore == nil {
		return respondError(ctx, metricUnavailable("cpu.load.per_core"))
	}

	return ctx.JSON(http.StatusOK, load.PerCore)
}

// getMemory handles GET /metrics/memory.
func (srv *AgentServer) getMemory(ctx echo.Context) error {
	memoryMetrics, err := srv.sampler.SampleMemory(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, memoryMetrics)
}

// getMemoryPercUsed handles GET /metrics/memory/perc-used.
func (srv *AgentServer) getMemoryPercUsed(ctx echo.Context) error {
	memoryMetrics, err := srv.sampler.SampleMemory(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, memoryMetrics.PercUsed)
}

// getMemoryDetailed handles GET /metrics/memory/detailed.
func (srv *AgentServer) getMemoryDetailed(ctx echo.Context) error {
	memoryMetrics, err := srv.sampler.SampleMemory(ctx.Request().Context())
	if err != nil {
		return respondError(ctx, err)
	}
	if memoryMetrics.Detailed == nil {
		return respondError(ctx, metricUnavailable("memory.detailed"))
	}

	return ctx.JSON(http.StatusOK, memoryMetrics.Detailed)
}
