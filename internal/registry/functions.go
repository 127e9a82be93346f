package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/script"
)

var (
	// ErrParamCountMismatch is returned when a function or command gets the
	// wrong number of arguments.
	ErrParamCountMismatch = errors.New("parameter count mismatch")
	// ErrUnknownFunction is returned for calls to unregistered functions.
	ErrUnknownFunction = errors.New("unknown function")
)

// Variadic as MaxArgs accepts any number of arguments above MinArgs.
const Variadic = -1

// Call is one invocation of a registered function.
type Call struct {
	// Self is the form node the calling script runs on behalf of.
	Self formtree.NodeID
	Args []script.Value
}

// Func implements a script function.
type Func func(ctx context.Context, call Call) (script.Value, error)

// RegisteredFunction holds the compiled Go part of a script function and its
// accepted argument counts.
type RegisteredFunction struct {
	MinArgs int
	MaxArgs int
	Fn      Func
}

// RegisterFunction registers a Go function under the name scripts call it by.
func (r *Registry) RegisterFunction(name string, fn *RegisteredFunction) {
	if _, exists := r.functions[name]; exists {
		panic(fmt.Sprintf("function with name '%s' already registered", name))
	}
	slog.Debug("Registering script function.", "name", name, "min_args", fn.MinArgs, "max_args", fn.MaxArgs)
	r.functions[name] = fn
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	return sortedKeys(r.functions)
}

// Call runs the function name for the node self.
func (r *Registry) Call(ctx context.Context, self formtree.NodeID, name string, args []script.Value) (script.Value, error) {
	fn, ok := r.functions[name]
	if !ok {
		return script.Undefined(), fmt.Errorf("call %q: %w", name, ErrUnknownFunction)
	}
	if err := CheckArgs(name, len(args), fn.MinArgs, fn.MaxArgs); err != nil {
		return script.Undefined(), err
	}
	return fn.Fn(ctx, Call{Self: self, Args: args})
}

// CheckArgs reports ErrParamCountMismatch when n is outside [minArgs,
// maxArgs]. A Variadic maxArgs has no upper bound.
func CheckArgs(name string, n, minArgs, maxArgs int) error {
	if n >= minArgs && (maxArgs == Variadic || n <= maxArgs) {
		return nil
	}
	var want string
	switch {
	case maxArgs == Variadic:
		want = fmt.Sprintf("at least %d", minArgs)
	case minArgs == maxArgs:
		want = fmt.Sprintf("%d", minArgs)
	default:
		want = fmt.Sprintf("%d to %d", minArgs, maxArgs)
	}
	return fmt.Errorf("%s: got %d arguments, want %s: %w", name, n, want, ErrParamCountMismatch)
}
