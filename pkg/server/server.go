package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostmon/pkg/auth"
	"hostmon/pkg/config"
	"hostmon/pkg/log"
	"hostmon/pkg/sampler"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	shutdownTimeout = 10
)

// Options toggles the routes that are not part of the metrics tree.
type Options struct {
	HealthRoutes bool
	DocsRoutes   bool
}

// AgentServer exposes sampler output over HTTP(S).
type AgentServer struct {
	cfg     *config.Config
	sampler sampler.MetricsSampler
	gate    auth.Gate
	opts    Options
	version string
	echo    *echo.Echo
}

// NewAgentServer wires the route tree. cfg and smp are shared by every handler.
func NewAgentServer(cfg *config.Config, smp sampler.MetricsSampler, gate auth.Gate, version string, opts Options) *AgentServer {
	if gate == nil {
		gate = auth.AllowAll{}
	}

	srv := &AgentServer{
		cfg:     cfg,
		sampler: smp,
		gate:    gate,
		opts:    opts,
		version: version,
		echo:    echo.New(),
	}
	srv.setupRoutes()

	return srv
}

// Handler returns the routable surface, for embedding or tests.
func (srv *AgentServer) Handler() http.Handler {
	return srv.echo
}

// Start binds the listener, serves in the background and blocks until SIGINT or SIGTERM.
func (srv *AgentServer) Start() error {
	addr, err := srv.Listen()
	if err != nil {
		return err
	}

	go func() {
		log.Info().
			Str("addr", addr.String()).
			Bool("tls", srv.cfg.TLSEnabled()).
			Str("agent_id", srv.cfg.AgentID).
			Str("version", srv.version).
			Msg("Starting metrics agent")

		if err := srv.Serve(); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return srv.Shutdown()
}

// Listen binds the configured address, wrapping it in TLS when a certificate is
// configured. Certificate problems fail here, before any connection is accepted.
func (srv *AgentServer) Listen() (net.Addr, error) {
	listener, err := newListener(srv.cfg)
	if err != nil {
		return nil, err
	}

	srv.echo.Listener = listener
	return listener.Addr(), nil
}

// Serve handles requests on the listener bound by Listen until Shutdown.
func (srv *AgentServer) Serve() error {
	if srv.echo.Listener == nil {
		return errors.New("serve called before listen")
	}

	// An empty address makes echo use the listener bound by Listen.
	if err := srv.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (srv *AgentServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout*time.Second)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	if srv.echo.Listener != nil {
		if err := srv.echo.Listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Warn().Err(err).Msg("Failed to close listener")
		}
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (srv *AgentServer) setupRoutes() {
	srv.echo.HideBanner = true
	srv.echo.HidePort = true

	srv.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("Request")
			return nil
		},
	}))
	srv.echo.Use(middleware.Recover())

	if srv.opts.HealthRoutes {
		srv.echo.GET("/health", srv.getHealth)
	}
	if srv.opts.DocsRoutes {
		srv.echo.GET("/docs", srv.serveDocs)
		srv.echo.GET("/swagger.yml", srv.serveSwaggerSpec)
	}

	// The gate is attached per route so unknown paths and methods keep their 404/405.
	gate := auth.Middleware(srv.gate)
	srv.echo.GET("/agent-id", srv.getAgentID, gate)

	metrics := srv.echo.Group("/metrics")
	metrics.GET("", srv.getMetrics, gate)

	cpu := metrics.Group("/cpu")
	cpu.GET("", srv.getCPU, gate)
	cpu.GET("/load", srv.getCPULoad, gate)
	cpu.GET("/load/average", srv.getCPULoadAverage, gate)
	cpu.GET("/load/per-core", srv.getCPULoadPerCore, gate)

	memory := metrics.Group("/memory")
	memory.GET("", srv.getMemory, gate)
	memory.GET("/perc-used", srv.getMemoryPercUsed, gate)
	memory.GET("/detailed", srv.getMemoryDetailed, gate)
}
