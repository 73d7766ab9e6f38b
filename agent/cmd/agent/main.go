package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/obsidianstack/tidepool/agent/internal/config"
	"github.com/obsidianstack/tidepool/agent/internal/probe"
	"github.com/obsidianstack/tidepool/agent/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("tidepool-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"produce_interval", cfg.Agent.ProduceInterval,
		"consume_interval", cfg.Agent.ConsumeInterval,
		"metrics_endpoint", cfg.Agent.MetricsEndpoint,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w := worker.New(cfg.Agent)
	go w.Run(ctx)

	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			w.SetIntervals(updated.Agent.ProduceInterval, updated.Agent.ConsumeInterval)
			slog.Info("config hot-reloaded",
				"produce_interval", updated.Agent.ProduceInterval,
				"consume_interval", updated.Agent.ConsumeInterval,
			)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	if cfg.Agent.MetricsEndpoint != "" {
		go runProbe(ctx, probe.New(cfg.Agent.MetricsEndpoint), cfg.Agent.ProbeInterval, w)
	} else {
		slog.Info("no metrics_endpoint configured, probe disabled")
	}

	<-ctx.Done()
	slog.Info("tidepool-agent shutting down",
		"produced", w.Produced(),
		"consumed", w.Consumed(),
		"empty", w.Empty(),
	)
}

// runProbe logs a server reading every interval until ctx is cancelled.
func runProbe(ctx context.Context, p *probe.Probe, interval time.Duration, w *worker.Worker) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r, err := p.Read(ctx)
			if err != nil {
				slog.Warn("probe error", "err", err)
				continue
			}
			attrs := []any{
				"items", r.Items,
				"threshold", r.Threshold,
				"produced_total", r.Produced,
				"consumed_total", r.Consumed,
				"expired_total", r.Expired,
				"agent_produced", w.Produced(),
				"agent_consumed", w.Consumed(),
			}
			if r.Stacking() {
				slog.Warn("container at threshold, consumes are taking the newest item", attrs...)
				continue
			}
			slog.Info("probe reading", attrs...)
		}
	}
}
