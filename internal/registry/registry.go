package registry

import (
	"fmt"
	"log/slog"
	"sort"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all the registered functions, sink factories and transports
// for a single application instance.
type Registry struct {
	functions  map[string]*RegisteredFunction
	sinks      map[string]SinkFactory
	transports map[string]TransportFactory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		functions:  make(map[string]*RegisteredFunction),
		sinks:      make(map[string]SinkFactory),
		transports: make(map[string]TransportFactory),
	}
}

// RegisterSink registers a factory for layout sinks selected by scheme.
func (r *Registry) RegisterSink(scheme string, factory SinkFactory) {
	if _, exists := r.sinks[scheme]; exists {
		panic(fmt.Sprintf("sink factory for scheme '%s' already registered", scheme))
	}
	slog.Debug("Registering sink factory.", "scheme", scheme)
	r.sinks[scheme] = factory
}

// Sink returns the sink factory for scheme.
func (r *Registry) Sink(scheme string) (SinkFactory, bool) {
	f, ok := r.sinks[scheme]
	return f, ok
}

// RegisterTransport registers a factory for submit transports selected by
// scheme.
func (r *Registry) RegisterTransport(scheme string, factory TransportFactory) {
	if _, exists := r.transports[scheme]; exists {
		panic(fmt.Sprintf("transport for scheme '%s' already registered", scheme))
	}
	slog.Debug("Registering submit transport.", "scheme", scheme)
	r.transports[scheme] = factory
}

// Transport returns the transport factory for scheme.
func (r *Registry) Transport(scheme string) (TransportFactory, bool) {
	f, ok := r.transports[scheme]
	return f, ok
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
