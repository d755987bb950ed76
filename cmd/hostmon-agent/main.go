package main

import (
	"context"
	_ "embed"
	"flag"
	"os"
	"strings"

	"hostmon/pkg/auth"
	"hostmon/pkg/config"
	"hostmon/pkg/log"
	"hostmon/pkg/sampler"
	"hostmon/pkg/sampler/system"
	"hostmon/pkg/server"
)

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	configPath := flag.String("config", config.DefaultPath, "Config file path")
	host := flag.String("host", "", "Listen host (overrides config)")
	port := flag.Int("port", 0, "Listen port (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load config")
	}

	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	if err := log.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("Invalid log settings")
	}
	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	smp := sampler.New(context.Background(), system.New(), sampler.Options{
		CPULoad:        cfg.Collect.CPULoad,
		PerCore:        cfg.Collect.CPUPerCore,
		MemoryDetailed: cfg.Collect.MemoryDetailed,
		PrimeInterval:  cfg.Collect.PrimeInterval,
	})

	if cfg.Token == "" {
		log.Warn().Msg("No token configured, metrics are served to every caller")
	}

	agent := server.NewAgentServer(cfg, smp, auth.NewTokenGate(cfg.Token), strings.TrimSpace(Version), server.Options{
		HealthRoutes: true,
		DocsRoutes:   true,
	})

	if err := agent.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	os.Exit(0)
}
