package worker

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/obsidianstack/tidepool/agent/internal/config"
	"github.com/obsidianstack/tidepool/pkg/containerrpc"
)

// mockServer is a minimal FIFO container behind the gRPC service.
type mockServer struct {
	containerrpc.UnimplementedContainerServiceServer
	mu       sync.Mutex
	items    []int64
	next     int64
	produces int
	consumes int
	denied    int
	keys      []string
	denyAll   bool
	calls     int
	failFirst int
}

func (m *mockServer) record(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	m.keys = append(m.keys, md.Get("x-api-key")...)
	m.calls++
	if m.calls <= m.failFirst {
		return status.Error(codes.Unavailable, "restarting")
	}
	if m.denyAll {
		m.denied++
		return status.Error(codes.Unauthenticated, "denied")
	}
	return nil
}

func (m *mockServer) Produce(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	m.produces++
	m.next++
	m.items = append(m.items, m.next)
	return containerrpc.Reply(m.items, "a new item produced"), nil
}

func (m *mockServer) Consume(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(ctx); err != nil {
		return nil, err
	}
	m.consumes++
	if len(m.items) == 0 {
		return containerrpc.Reply(nil, "container is empty now"), nil
	}
	v := m.items[0]
	m.items = m.items[1:]
	return containerrpc.ConsumeReply(m.items, "an item consumed", "queue", v), nil
}

func (m *mockServer) counts() (produces, consumes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.produces, m.consumes
}

func (m *mockServer) seenKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

// startTestServer starts an in-process gRPC server and returns a dialFunc
// that connects to it.
func startTestServer(t *testing.T, srv *mockServer) dialFunc {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	gs := grpc.NewServer()
	containerrpc.RegisterContainerServiceServer(gs, srv)
	go gs.Serve(lis) //nolint:errcheck
	t.Cleanup(gs.Stop)

	addr := lis.Addr().String()
	return func(ctx context.Context, _ string, _ config.AgentConfig) (*grpc.ClientConn, error) {
		return grpc.DialContext(ctx, addr, //nolint:staticcheck
			grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
}

func agentCfg(produce, consume time.Duration) config.AgentConfig {
	return config.AgentConfig{
		ServerEndpoint:  "unused-overridden-by-dialFn",
		ProduceInterval: produce,
		ConsumeInterval: consume,
		ServerAuth:      config.AuthConfig{Header: "x-api-key"},
	}
}

// fastBackOff keeps reconnect waits in the millisecond range.
func fastBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 20 * time.Millisecond
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// runWorker starts w.Run and returns a func that cancels and waits for it.
func runWorker(t *testing.T, w *Worker) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	stopFn := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
	t.Cleanup(cancel)
	return stopFn
}

// eventually polls cond for up to two seconds.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- Tests ---

func TestWorker_ProducesAndConsumes(t *testing.T) {
	srv := &mockServer{}
	w := New(agentCfg(10*time.Millisecond, 25*time.Millisecond))
	w.dialFn = startTestServer(t, srv)

	stopRun := runWorker(t, w)
	eventually(t, "produces and consumes", func() bool {
		p, c := srv.counts()
		return p >= 3 && c >= 1
	})
	stopRun()

	if w.Produced() < 3 {
		t.Errorf("Produced: got %d, want >= 3", w.Produced())
	}
	if w.Consumed()+w.Empty() < 1 {
		t.Errorf("Consumed+Empty: got %d, want >= 1", w.Consumed()+w.Empty())
	}
}

func TestWorker_ConsumeOnlyCountsEmpty(t *testing.T) {
	srv := &mockServer{}
	w := New(agentCfg(0, 10*time.Millisecond))
	w.dialFn = startTestServer(t, srv)

	stopRun := runWorker(t, w)
	eventually(t, "empty consumes", func() bool { return w.Empty() >= 2 })
	stopRun()

	if p, _ := srv.counts(); p != 0 {
		t.Errorf("produces with producer disabled: got %d, want 0", p)
	}
	if w.Consumed() != 0 {
		t.Errorf("Consumed: got %d, want 0", w.Consumed())
	}
}

func TestWorker_InjectsAPIKey(t *testing.T) {
	t.Setenv("WORKER_TEST_KEY", "k3y")
	srv := &mockServer{}
	cfg := agentCfg(10*time.Millisecond, 0)
	cfg.ServerAuth = config.AuthConfig{Mode: "apikey", KeyEnv: "WORKER_TEST_KEY", Header: "x-api-key"}
	w := New(cfg)
	w.dialFn = startTestServer(t, srv)

	stopRun := runWorker(t, w)
	eventually(t, "a keyed call", func() bool { return len(srv.seenKeys()) > 0 })
	stopRun()

	if k := srv.seenKeys()[0]; k != "k3y" {
		t.Errorf("x-api-key: got %q, want k3y", k)
	}
}

func TestWorker_PermanentErrorKeepsConnection(t *testing.T) {
	srv := &mockServer{denyAll: true}
	dial := startTestServer(t, srv)

	var mu sync.Mutex
	dials := 0
	w := New(agentCfg(10*time.Millisecond, 0))
	w.dialFn = func(ctx context.Context, ep string, cfg config.AgentConfig) (*grpc.ClientConn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return dial(ctx, ep, cfg)
	}

	stopRun := runWorker(t, w)
	eventually(t, "several denied calls", func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.denied >= 3
	})
	stopRun()

	mu.Lock()
	defer mu.Unlock()
	if dials != 1 {
		t.Errorf("dials: got %d, want 1", dials)
	}
	if w.Produced() != 0 {
		t.Errorf("Produced: got %d, want 0", w.Produced())
	}
}

func TestWorker_SetIntervals(t *testing.T) {
	srv := &mockServer{}
	w := New(agentCfg(0, 0))
	w.dialFn = startTestServer(t, srv)

	stopRun := runWorker(t, w)
	time.Sleep(50 * time.Millisecond)
	if p, c := srv.counts(); p != 0 || c != 0 {
		t.Fatalf("calls while paused: got %d/%d, want 0/0", p, c)
	}

	w.SetIntervals(10*time.Millisecond, 0)
	eventually(t, "produces after SetIntervals", func() bool {
		p, _ := srv.counts()
		return p >= 2
	})
	stopRun()
}

func TestIsPermanentError(t *testing.T) {
	cases := []struct {
		code codes.Code
		want bool
	}{
		{codes.Unauthenticated, true},
		{codes.PermissionDenied, true},
		{codes.InvalidArgument, true},
		{codes.Unavailable, false},
		{codes.DeadlineExceeded, false},
	}
	for _, c := range cases {
		if got := isPermanentError(status.Error(c.code, "x")); got != c.want {
			t.Errorf("isPermanentError(%v): got %v, want %v", c.code, got, c.want)
		}
	}
}

func TestWorker_ReconnectsAfterUnavailable(t *testing.T) {
	srv := &mockServer{failFirst: 3}
	dial := startTestServer(t, srv)

	var mu sync.Mutex
	dials := 0
	w := New(agentCfg(10*time.Millisecond, 0))
	w.newBackOff = fastBackOff
	w.dialFn = func(ctx context.Context, ep string, cfg config.AgentConfig) (*grpc.ClientConn, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return dial(ctx, ep, cfg)
	}

	stopRun := runWorker(t, w)
	eventually(t, "produces after reconnect", func() bool { return w.Produced() >= 2 })
	stopRun()

	mu.Lock()
	defer mu.Unlock()
	if dials < 2 {
		t.Errorf("dials: got %d, want >= 2", dials)
	}
	if p, _ := srv.counts(); p < 2 {
		t.Errorf("server produces: got %d, want >= 2", p)
	}
}

func TestReconnectBackOff_GrowsAndCaps(t *testing.T) {
	b := newReconnectBackOff()
	base := backoffInitial
	for i := 0; i < 10; i++ {
		d := b.NextBackOff()
		lo := time.Duration(float64(base) * (1 - backoffJitter))
		hi := time.Duration(float64(base)*(1+backoffJitter)) + time.Nanosecond
		if d < lo || d > hi {
			t.Fatalf("NextBackOff #%d: %v outside [%v, %v]", i, d, lo, hi)
		}
		base *= 2
		if base > backoffMax {
			base = backoffMax
		}
	}

	b.Reset()
	d := b.NextBackOff()
	if d < backoffInitial*3/4 || d > backoffInitial*5/4 {
		t.Errorf("NextBackOff after Reset: got %v, want about %v", d, backoffInitial)
	}
	if d == backoff.Stop {
		t.Error("NextBackOff returned Stop, want unlimited retries")
	}
}
