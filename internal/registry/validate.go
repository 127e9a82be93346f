package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/formrun/internal/ctxlog"
)

// ValidateRegistry checks every registration for consistency: argument
// bounds must be ordered, names must be usable as script identifiers and
// every entry needs an implementation.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		fn := r.functions[name]
		if fn.Fn == nil {
			errs = append(errs, fmt.Sprintf("function '%s': no Go implementation", name))
		}
		if fn.MinArgs < 0 {
			errs = append(errs, fmt.Sprintf("function '%s': negative minimum argument count %d", name, fn.MinArgs))
		}
		if fn.MaxArgs != Variadic && fn.MaxArgs < fn.MinArgs {
			errs = append(errs, fmt.Sprintf("function '%s': maximum argument count %d is below minimum %d", name, fn.MaxArgs, fn.MinArgs))
		}
		if !hclsyntax.ValidIdentifier(name) {
			errs = append(errs, fmt.Sprintf("function '%s': name is not a valid identifier", name))
		}
		if fn.MaxArgs == Variadic {
			logger.Debug("Function accepts any number of arguments.", "function", name, "min_args", fn.MinArgs)
		}
	}
	for _, scheme := range sortedKeys(r.sinks) {
		if r.sinks[scheme] == nil {
			errs = append(errs, fmt.Sprintf("sink '%s': no factory", scheme))
		}
	}
	for _, scheme := range sortedKeys(r.transports) {
		if r.transports[scheme] == nil {
			errs = append(errs, fmt.Sprintf("transport '%s': no factory", scheme))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
