package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostmon/pkg/client"
	"hostmon/pkg/log"
	"hostmon/pkg/models"

	"github.com/dustin/go-humanize"
)

const (
	defaultInterval = 5 * time.Second
	defaultTimeout  = 10 * time.Second
)

func main() {
	_ = log.Logger

	agentURL := flag.String("agent", "http://127.0.0.1:9100", "Agent base URL")
	token := flag.String("token", "", "Bearer token")
	interval := flag.Duration("interval", defaultInterval, "Polling interval")
	count := flag.Int("count", 0, "Number of samples to take (0 polls until interrupted)")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification")
	timeout := flag.Duration("timeout", defaultTimeout, "Request timeout")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
	}

	agent, err := client.New(*agentURL, client.Options{
		Token:              *token,
		Timeout:            *timeout,
		InsecureSkipVerify: *insecure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	agentID, err := agent.AgentID(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("agent", *agentURL).Msg("Failed to reach agent")
	}
	log.Info().Str("agent", *agentURL).Str("agent_id", agentID).Msg("Connected to agent")

	failures := poll(ctx, agent, *interval, *count)
	stop()

	if failures > 0 {
		os.Exit(1)
	}
}

// poll samples the agent until count samples were taken or ctx is done and
// returns the number of failed samples.
func poll(ctx context.Context, agent *client.Client, interval time.Duration, count int) int {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for taken := 0; count == 0 || taken < count; taken++ {
		if taken > 0 {
			select {
			case <-ctx.Done():
				return failures
			case <-ticker.C:
			}
		}

		metrics, err := agent.Metrics(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return failures
			}
			failures++
			log.Error().Err(err).Msg("Failed to sample agent")
			continue
		}
		logSample(metrics)
	}

	return failures
}

func logSample(metrics *models.Metrics) {
	event := log.Info().Float64("memory_perc_used", metrics.Memory.PercUsed.Float64())
	if load := metrics.CPU.Load; load != nil {
		event = event.Float64("cpu_average", load.Average.Float64())
		if load.PerCore != nil {
			perCore := make([]float64, len(load.PerCore))
			for i, value := range load.PerCore {
				perCore[i] = value.Float64()
			}
			event = event.Floats64("cpu_per_core", perCore)
		}
	}
	if detailed := metrics.Memory.Detailed; detailed != nil {
		event = event.
			Str("memory_total", humanize.IBytes(detailed.Total)).
			Str("memory_available", humanize.IBytes(detailed.Available))
	}
	event.Msg("Sample")
}
