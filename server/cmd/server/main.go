package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/obsidianstack/tidepool/pkg/containerrpc"
	"github.com/obsidianstack/tidepool/server/internal/api"
	"github.com/obsidianstack/tidepool/server/internal/auth"
	"github.com/obsidianstack/tidepool/server/internal/buffer"
	"github.com/obsidianstack/tidepool/server/internal/config"
	"github.com/obsidianstack/tidepool/server/internal/metrics"
	"github.com/obsidianstack/tidepool/server/internal/receiver"
	"github.com/obsidianstack/tidepool/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("tidepool-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	cc := cfg.Server.Container
	slog.Info("config loaded",
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"threshold", cc.Threshold,
		"ttl", cc.TTL,
		"sweep_period", cc.SweepPeriod,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	m.SetThreshold(cc.Threshold)

	// Container with background TTL sweep.
	var buf *buffer.Buffer
	buf = buffer.New(cc.Threshold, cc.TTL,
		buffer.WithExpireObserver(func(n int) { m.Expired(n, buf.Len()) }),
	)
	go buf.Run(ctx, cc.SweepPeriod)

	// Apply container limits from config edits without a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			uc := updated.Server.Container
			buf.Reconfigure(uc.Threshold, uc.TTL)
			m.SetThreshold(uc.Threshold)
			slog.Info("container reconfigured", "threshold", uc.Threshold, "ttl", uc.TTL)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// gRPC container service with optional API key authentication.
	interceptor := auth.APIKeyInterceptor(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	containerrpc.RegisterContainerServiceServer(grpcSrv, receiver.New(buf, m))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port",
			"port", cfg.Server.GRPCPort, "err", err)
		os.Exit(1)
	}

	go func() {
		slog.Info("gRPC container service listening", "port", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	hub := ws.New(buf, cfg.Server.Stream.Interval)
	go hub.Run(ctx)

	// REST API, metrics and WebSocket stream share HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		api.New(buf, m),
	))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", m.Handler())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("tidepool-server shutting down")
	grpcSrv.GracefulStop()
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
