package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/script"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Nil means standard output.
	Out io.Writer
}

// Print writes its arguments separated by spaces and returns Null. Null and
// undefined arguments print as "(null)".
func (m *Module) Print(ctx context.Context, call registry.Call) (script.Value, error) {
	parts := make([]string, len(call.Args))
	for i, a := range call.Args {
		if a.IsNull() || a.IsUndefined() {
			parts[i] = "(null)"
			continue
		}
		parts[i] = a.String()
	}
	line := strings.Join(parts, " ")
	ctxlog.FromContext(ctx).Debug("Printing.", "args", len(call.Args))

	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := fmt.Fprintln(out, line); err != nil {
		return script.Undefined(), fmt.Errorf("print: %w", err)
	}
	return script.Null(), nil
}

// Register registers the print function.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("print", &registry.RegisteredFunction{
		MinArgs: 0,
		MaxArgs: registry.Variadic,
		Fn:      m.Print,
	})
}
