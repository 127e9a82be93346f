package host

import (
	"context"
	"sync"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formtree"
)

// SignalKind tells the two layout signals apart.
type SignalKind string

const (
	SignalContainerChanged SignalKind = "container_changed"
	SignalDataReordered    SignalKind = "data_reordered"
)

// Signal is one recorded layout signal.
type Signal struct {
	Kind SignalKind
	Path string
}

// Recorder is a LayoutSink that keeps every signal.
type Recorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *Recorder) ContainerChanged(_ context.Context, _ formtree.NodeID, path string) {
	r.add(Signal{Kind: SignalContainerChanged, Path: path})
}

func (r *Recorder) DataReordered(_ context.Context, _ databind.DataID, path string) {
	r.add(Signal{Kind: SignalDataReordered, Path: path})
}

func (r *Recorder) add(s Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, s)
	r.mu.Unlock()
}

// Signals returns the recorded signals in order.
func (r *Recorder) Signals() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Signal(nil), r.signals...)
}

// LogSink writes signals to the context logger at debug level.
type LogSink struct{}

func (LogSink) ContainerChanged(ctx context.Context, node formtree.NodeID, path string) {
	ctxlog.FromContext(ctx).Debug("Layout signal.", "signal", SignalContainerChanged, "node", node, "path", path)
}

func (LogSink) DataReordered(ctx context.Context, parent databind.DataID, path string) {
	ctxlog.FromContext(ctx).Debug("Layout signal.", "signal", SignalDataReordered, "data", parent, "path", path)
}

// Sinks fans signals out to several sinks in order.
type Sinks []LayoutSink

func (s Sinks) ContainerChanged(ctx context.Context, node formtree.NodeID, path string) {
	for _, sink := range s {
		sink.ContainerChanged(ctx, node, path)
	}
}

func (s Sinks) DataReordered(ctx context.Context, parent databind.DataID, path string) {
	for _, sink := range s {
		sink.DataReordered(ctx, parent, path)
	}
}
