package registry

import (
	"context"
	"io"

	"github.com/vk/formrun/internal/host"
)

// SinkFactory connects a layout sink to target. The returned closer releases
// the connection.
type SinkFactory func(ctx context.Context, target string) (host.LayoutSink, io.Closer, error)

// Transport delivers an exported data packet.
type Transport interface {
	Submit(ctx context.Context, contentType string, packet []byte) error
}

// TransportFactory creates a transport that submits to target.
type TransportFactory func(ctx context.Context, target string) (Transport, error)
