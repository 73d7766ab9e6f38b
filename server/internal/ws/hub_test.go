package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/tidepool/server/internal/buffer"
	wsHub "github.com/obsidianstack/tidepool/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newBuffer(produced int) *buffer.Buffer {
	b := buffer.New(5, 30*time.Second)
	for i := 0; i < produced; i++ {
		b.Produce()
	}
	return b
}

// startHub serves the hub from a test server and runs its broadcast loop.
// Returns the ws:// URL, the hub, and the cancel func for Run.
func startHub(t *testing.T, buf *buffer.Buffer) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(buf, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads and decodes one message with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// waitCount polls hub.Count until it equals want or a second passes.
func waitCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("Count: got %d, want %d", hub.Count(), want)
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateState(t *testing.T) {
	wsURL, _, _ := startHub(t, newBuffer(3))

	m := readMessage(t, dial(t, wsURL))
	if m.Event != "container" {
		t.Errorf("event: got %q, want container", m.Event)
	}
	if m.Data.Size != 3 || len(m.Data.Container) != 3 {
		t.Errorf("data: got size %d container %v, want 3 items", m.Data.Size, m.Data.Container)
	}
	if m.Data.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
	if m.Data.Policy != "queue" {
		t.Errorf("policy: got %q, want queue", m.Data.Policy)
	}
}

func TestHub_EmptyContainer(t *testing.T) {
	wsURL, _, _ := startHub(t, newBuffer(0))
	m := readMessage(t, dial(t, wsURL))
	if !m.Data.Empty || len(m.Data.Container) != 0 {
		t.Errorf("data: got empty=%v container=%v, want empty", m.Data.Empty, m.Data.Container)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	buf := newBuffer(0)
	wsURL, _, _ := startHub(t, buf)

	conn := dial(t, wsURL)
	readMessage(t, conn) // immediate state, empty

	buf.Produce()
	buf.Produce()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn)
		if m.Data.Size == 2 {
			return
		}
	}
	t.Fatal("no broadcast reflected the two produced items")
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newBuffer(0))

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i])
	}
	waitCount(t, hub, 3)

	conns[0].Close()
	waitCount(t, hub, 2)
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newBuffer(0))

	conn := dial(t, wsURL)
	readMessage(t, conn)
	waitCount(t, hub, 1)

	cancel()
	waitCount(t, hub, 0)
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newBuffer(0), testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
