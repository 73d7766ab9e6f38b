package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/obsidianstack/tidepool/agent/internal/config"
	"github.com/obsidianstack/tidepool/pkg/containerrpc"
)

const callTimeout = 10 * time.Second

// dialFunc opens a gRPC connection. Tests replace it to reach an in-process
// server.
type dialFunc func(ctx context.Context, endpoint string, cfg config.AgentConfig) (*grpc.ClientConn, error)

// Worker produces to and consumes from tidepool-server on fixed intervals.
type Worker struct {
	cfg        config.AgentConfig
	dialFn     dialFunc
	newBackOff func() backoff.BackOff

	mu           sync.Mutex
	produceEvery time.Duration
	consumeEvery time.Duration
	changed      chan struct{}

	produced atomic.Int64
	consumed atomic.Int64
	empty    atomic.Int64
}

// New creates a Worker from the agent config.
func New(cfg config.AgentConfig) *Worker {
	return &Worker{
		cfg:          cfg,
		dialFn:       defaultDial,
		newBackOff:   newReconnectBackOff,
		produceEvery: cfg.ProduceInterval,
		consumeEvery: cfg.ConsumeInterval,
		changed:      make(chan struct{}, 1),
	}
}

// SetIntervals replaces the produce and consume periods. A zero period
// pauses that side.
func (w *Worker) SetIntervals(produce, consume time.Duration) {
	w.mu.Lock()
	w.produceEvery = produce
	w.consumeEvery = consume
	w.mu.Unlock()

	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// Produced returns the number of successful Produce calls.
func (w *Worker) Produced() int64 { return w.produced.Load() }

// Consumed returns the number of Consume calls that removed an item.
func (w *Worker) Consumed() int64 { return w.consumed.Load() }

// Empty returns the number of Consume calls that found the container empty.
func (w *Worker) Empty() int64 { return w.empty.Load() }

// Run connects to the server and drives the produce and consume loops,
// reconnecting with backoff when the connection is lost. Run blocks until
// ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	bo := w.newBackOff()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := w.dialFn(ctx, w.cfg.ServerEndpoint, w.cfg)
		if err != nil {
			wait := bo.NextBackOff()
			slog.Error("worker: dial failed, will retry",
				"endpoint", w.cfg.ServerEndpoint,
				"err", err,
				"retry_in", wait)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		slog.Info("worker: connected", "endpoint", w.cfg.ServerEndpoint)
		bo.Reset()

		err = w.session(ctx, containerrpc.NewContainerServiceClient(conn))
		conn.Close()

		if ctx.Err() != nil {
			return
		}

		wait := bo.NextBackOff()
		slog.Warn("worker: connection lost, will reconnect",
			"endpoint", w.cfg.ServerEndpoint,
			"err", err,
			"retry_in", wait)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// session runs both loops on client until a transient error or ctx ends.
func (w *Worker) session(ctx context.Context, client containerrpc.ContainerServiceClient) error {
	for {
		w.mu.Lock()
		produceEvery, consumeEvery := w.produceEvery, w.consumeEvery
		w.mu.Unlock()

		pt, pc := ticker(produceEvery)
		ct, cc := ticker(consumeEvery)

		reset, err := w.loop(ctx, client, pc, cc)
		stop(pt)
		stop(ct)
		if !reset {
			return err
		}
	}
}

// loop serves ticks until an error, cancellation, or an interval change
// (reset == true).
func (w *Worker) loop(ctx context.Context, client containerrpc.ContainerServiceClient, pc, cc <-chan time.Time) (reset bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return false, nil

		case <-w.changed:
			return true, nil

		case <-pc:
			if err := w.produce(ctx, client); err != nil && !isPermanentError(err) {
				return false, fmt.Errorf("produce: %w", err)
			}

		case <-cc:
			if err := w.consume(ctx, client); err != nil && !isPermanentError(err) {
				return false, fmt.Errorf("consume: %w", err)
			}
		}
	}
}

func (w *Worker) produce(ctx context.Context, client containerrpc.ContainerServiceClient) error {
	callCtx, cancel := w.callContext(ctx)
	defer cancel()

	resp, err := client.Produce(callCtx)
	if err != nil {
		logCallError("produce", err)
		return err
	}
	w.produced.Add(1)
	slog.Debug("worker: produced", "container", containerrpc.Values(resp))
	return nil
}

func (w *Worker) consume(ctx context.Context, client containerrpc.ContainerServiceClient) error {
	callCtx, cancel := w.callContext(ctx)
	defer cancel()

	resp, err := client.Consume(callCtx)
	if err != nil {
		logCallError("consume", err)
		return err
	}
	v, ok := containerrpc.Consumed(resp)
	if !ok {
		w.empty.Add(1)
		slog.Debug("worker: container empty")
		return nil
	}
	w.consumed.Add(1)
	slog.Debug("worker: consumed",
		"value", v,
		"policy", containerrpc.Policy(resp),
		"container", containerrpc.Values(resp))
	return nil
}

// callContext bounds a single call and attaches the API key if configured.
func (w *Worker) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	if w.cfg.ServerAuth.Mode == "apikey" && w.cfg.ServerAuth.KeyEnv != "" {
		callCtx = metadata.AppendToOutgoingContext(callCtx, w.cfg.ServerAuth.Header, w.cfg.ServerAuth.Key())
	}
	return callCtx, cancel
}

func logCallError(op string, err error) {
	if isPermanentError(err) {
		slog.Error("worker: permanent error, dropping call", "op", op, "err", err)
	}
}

// isPermanentError reports gRPC errors that retrying over a new connection
// will not fix.
func isPermanentError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	return false
}

// ticker returns a ticker for d, or a nil ticker and channel when d <= 0.
func ticker(d time.Duration) (*time.Ticker, <-chan time.Time) {
	if d <= 0 {
		return nil, nil
	}
	t := time.NewTicker(d)
	return t, t.C
}

func stop(t *time.Ticker) {
	if t != nil {
		t.Stop()
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// defaultDial opens a plaintext gRPC connection to endpoint. The API key,
// when configured, is attached per call by callContext.
func defaultDial(ctx context.Context, endpoint string, _ config.AgentConfig) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, endpoint, //nolint:staticcheck // DialContext kept for compat
		grpc.WithTransportCredentials(insecure.NewCredentials()))
}
