package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"hostmon/pkg/log"
	"hostmon/pkg/models"
	"hostmon/pkg/sampler"
)

const (
	kindMetricUnavailable  = "metric_unavailable"
	kindSamplerUnavailable = "sampler_unavailable"
	kindInternal           = "internal_error"
)

var (
	// ErrMetricUnavailable is returned when an optional metric is not collected.
	ErrMetricUnavailable = errors.New("metric unavailable")

	// ErrListenerStartup is returned when the listener or its TLS material cannot be set up.
	ErrListenerStartup = errors.New("listener startup failed")
)

func metricUnavailable(name string) error {
	return fmt.Errorf("%w: %s is not collected", ErrMetricUnavailable, name)
}

// respondError maps per-request failures to a status and a structured body.
func respondError(ctx echo.Context, err error) error {
	path := ctx.Request().URL.Path

	switch {
	case errors.Is(err, ErrMetricUnavailable):
		log.Warn().Err(err).Str("path", path).Msg("Requested metric is not collected")
		return ctx.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: err.Error(),
			Kind:  kindMetricUnavailable,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("path", path).Msg("Sampling interrupted")
		return ctx.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: "sampling interrupted",
			Kind:  kindSamplerUnavailable,
		})
	case errors.Is(err, sampler.ErrSamplerUnavailable):
		log.Error().Err(err).Str("path", path).Msg("Failed to sample host counters")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "failed to read host counters",
			Kind:  kindSamplerUnavailable,
		})
	default:
		log.Error().Err(err).Str("path", path).Msg("Request failed")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "internal server error",
			Kind:  kindInternal,
		})
	}
}
