package registry

import (
	"context"

	"github.com/vk/formrun/internal/ctxlog"
)

// Load registers every module and validates the result.
func (r *Registry) Load(ctx context.Context, modules ...Module) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading modules...", "count", len(modules))

	for _, m := range modules {
		m.Register(r)
	}
	if err := r.ValidateRegistry(ctx); err != nil {
		return err
	}

	logger.Debug("Registry loaded successfully.",
		"functions", len(r.functions),
		"sinks", len(r.sinks),
		"transports", len(r.transports),
	)
	return nil
}
