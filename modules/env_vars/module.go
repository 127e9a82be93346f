package env_vars

import (
	"context"
	"os"

	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/script"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Lookup replaces os.LookupEnv, mainly for tests.
	Lookup func(name string) (string, bool)
}

// Env returns the environment variable named by the first argument. An
// unset variable yields the optional default, else Null.
func (m *Module) Env(_ context.Context, call registry.Call) (script.Value, error) {
	lookup := m.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(call.Args[0].String()); ok {
		return script.Text(v), nil
	}
	if len(call.Args) > 1 {
		return call.Args[1], nil
	}
	return script.Null(), nil
}

// Register registers the env function.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("env", &registry.RegisteredFunction{
		MinArgs: 1,
		MaxArgs: 2,
		Fn:      m.Env,
	})
}
