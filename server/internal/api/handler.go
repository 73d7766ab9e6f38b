package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/obsidianstack/tidepool/server/internal/buffer"
)

// Reply messages shared by the REST and gRPC surfaces.
const (
	MessageProduced = "a new item produced"
	MessageConsumed = "an item consumed"
	MessageEmpty    = "container is empty now"
)

// Recorder receives container activity from the handlers. *metrics.Metrics
// satisfies it.
type Recorder interface {
	Produced(size int)
	Consumed(policy string, size int)
}

type nopRecorder struct{}

func (nopRecorder) Produced(int)         {}
func (nopRecorder) Consumed(string, int) {}

// Handler is the HTTP handler for the container endpoints.
type Handler struct {
	buf *buffer.Buffer
	rec Recorder
	mux *http.ServeMux
}

// New creates a Handler wired to buf and registers all routes. rec may be nil.
func New(buf *buffer.Buffer, rec Recorder) http.Handler {
	if rec == nil {
		rec = nopRecorder{}
	}
	h := &Handler{buf: buf, rec: rec, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/produce", h.produce)
	h.mux.HandleFunc("/api/consume", h.consume)
	h.mux.HandleFunc("/api/view", h.view)
	h.mux.HandleFunc("/api/v1/status", h.status)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// produce handles GET|POST /api/produce: appends one item.
func (h *Handler) produce(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	vals := h.buf.Produce()
	h.rec.Produced(len(vals))
	slog.Debug("api: produced", "size", len(vals), "value", vals[len(vals)-1])

	jsonResp(w, http.StatusOK, ContainerResponse{
		Container: vals,
		Message:   MessageProduced,
	})
}

// consume handles GET|POST /api/consume: removes one item. An empty
// container is reported with a message, not an error status.
func (h *Handler) consume(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	it, p, vals := h.buf.ConsumeItem()
	h.rec.Consumed(p.String(), len(vals))

	if p == buffer.PolicyNone {
		jsonResp(w, http.StatusOK, ContainerResponse{
			Container: vals,
			Message:   MessageEmpty,
		})
		return
	}

	slog.Debug("api: consumed", "value", it.Value, "policy", p.String(), "size", len(vals))
	v := it.Value
	jsonResp(w, http.StatusOK, ContainerResponse{
		Container: vals,
		Message:   MessageConsumed,
		Policy:    p.String(),
		Consumed:  &v,
	})
}

// view handles GET /api/view: current values, oldest first.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	jsonResp(w, http.StatusOK, ContainerResponse{Container: h.buf.Snapshot()})
}

// status handles GET /api/v1/status: size, limits and the next policy.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	jsonResp(w, http.StatusOK, BuildStatus(h.buf))
}

// BuildStatus assembles a StatusResponse from the current container state.
// The WebSocket hub reuses it for its broadcast payload.
func BuildStatus(buf *buffer.Buffer) StatusResponse {
	vals, threshold, ttl := buf.State()
	return StatusResponse{
		Size:        len(vals),
		Threshold:   threshold,
		TTLSeconds:  ttl.Seconds(),
		Policy:      buffer.PolicyFor(len(vals), threshold).String(),
		Empty:       len(vals) == 0,
		Container:   vals,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

// allow writes a 405 and returns false unless r uses one of methods.
func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
