package socketio_client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/registry"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted for layout signals.
const (
	EventContainerChanged = "containerChanged"
	EventDataReordered    = "dataReordered"
)

// ConnectTimeout bounds the wait for the first connection.
const ConnectTimeout = 15 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct {
	InsecureSkipVerify bool
}

// EmitFunc sends one event with its payload.
type EmitFunc func(event string, payload any)

// Sink forwards layout signals to a socket.io namespace.
type Sink struct {
	emit EmitFunc
}

// NewSink returns a sink sending through emit.
func NewSink(emit EmitFunc) *Sink {
	return &Sink{emit: emit}
}

func (s *Sink) ContainerChanged(ctx context.Context, node formtree.NodeID, path string) {
	ctxlog.FromContext(ctx).Debug("Emitting layout signal.", "event", EventContainerChanged, "path", path)
	s.emit(EventContainerChanged, map[string]any{"node": int(node), "path": path})
}

func (s *Sink) DataReordered(ctx context.Context, parent databind.DataID, path string) {
	ctxlog.FromContext(ctx).Debug("Emitting layout signal.", "event", EventDataReordered, "path", path)
	s.emit(EventDataReordered, map[string]any{"data": int(parent), "path": path})
}

// closer disconnects the client when the sink is released.
type closer struct {
	client *socket.Socket
}

func (c closer) Close() error {
	c.client.Disconnect()
	return nil
}

// Connect is the sink factory for socketio targets. The target's path
// selects the namespace; the scheme is replaced by http, or https for
// socketios.
func (m *Module) Connect(ctx context.Context, target string) (host.LayoutSink, io.Closer, error) {
	client, err := m.connect(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	emit := func(event string, payload any) { client.Emit(event, payload) }
	return NewSink(emit), closer{client: client}, nil
}

func (m *Module) connect(ctx context.Context, target string) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", target)
	logger.Info("Connecting layout signal sink...")

	parsedURL, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	scheme := "http"
	if parsedURL.Scheme == "socketios" {
		scheme = "https"
	}
	namespace := parsedURL.Path
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	if m.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	report := func(err error) {
		select {
		case connectChan <- err:
		default:
		}
	}

	baseURL := fmt.Sprintf("%s://%s", scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	client := manager.Socket(namespace, opts)

	client.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", client.Id())
		report(nil)
	})
	client.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error: %v", errs)
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		report(err)
	})
	client.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			client.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return client, nil
	case <-ctx.Done():
		client.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(ConnectTimeout):
		client.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", ConnectTimeout)
	}
}

// Register registers the sink factory for socketio and socketios targets.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSink("socketio", m.Connect)
	r.RegisterSink("socketios", m.Connect)
}
