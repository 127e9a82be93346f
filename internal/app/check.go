package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/hcl"
)

// Check parses every form under cfg.FormPath without running any of them
// and prints one line per loaded form.
func Check(ctx context.Context, outW io.Writer, cfg *Config, loader *hcl.Loader) error {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)

	tmpls, err := loader.LoadAll(ctx, cfg.FormPath)
	for _, tmpl := range tmpls {
		fmt.Fprintf(outW, "ok  %s (%d nodes, %s)\n", tmpl.Name, tmpl.Tree.Len(), tmpl.ScriptLanguage)
	}
	if err != nil {
		return fmt.Errorf("form check failed: %w", err)
	}
	logger.Info("All forms are valid.", "count", len(tmpls))
	return nil
}
