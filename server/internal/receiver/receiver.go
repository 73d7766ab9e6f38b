package receiver

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/obsidianstack/tidepool/pkg/containerrpc"
	"github.com/obsidianstack/tidepool/server/internal/api"
	"github.com/obsidianstack/tidepool/server/internal/buffer"
)

// Receiver implements containerrpc.ContainerServiceServer on top of a Buffer.
type Receiver struct {
	containerrpc.UnimplementedContainerServiceServer
	buf *buffer.Buffer
	rec api.Recorder
}

// New creates a Receiver serving buf. rec may be nil.
func New(buf *buffer.Buffer, rec api.Recorder) *Receiver {
	return &Receiver{buf: buf, rec: rec}
}

// Produce appends one item and returns the container.
// Authentication is enforced by the gRPC server interceptor before this is called.
func (r *Receiver) Produce(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	vals := r.buf.Produce()
	if r.rec != nil {
		r.rec.Produced(len(vals))
	}
	slog.Debug("receiver: produced", "size", len(vals), "value", vals[len(vals)-1])
	return containerrpc.Reply(vals, api.MessageProduced), nil
}

// Consume removes one item. An empty container is not an error.
func (r *Receiver) Consume(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	it, p, vals := r.buf.ConsumeItem()
	if r.rec != nil {
		r.rec.Consumed(p.String(), len(vals))
	}
	if p == buffer.PolicyNone {
		return containerrpc.Reply(vals, api.MessageEmpty), nil
	}
	slog.Debug("receiver: consumed", "value", it.Value, "policy", p.String(), "size", len(vals))
	return containerrpc.ConsumeReply(vals, api.MessageConsumed, p.String(), it.Value), nil
}

// View returns the container without modifying it.
func (r *Receiver) View(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return containerrpc.Reply(r.buf.Snapshot(), ""), nil
}

// IsEmpty reports whether the container holds no items.
func (r *Receiver) IsEmpty(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return containerrpc.EmptyReply(r.buf.IsEmpty()), nil
}
