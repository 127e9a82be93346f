package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/formrun/internal/command"
	"github.com/vk/formrun/internal/ctxlog"
)

// Run lays out the document, drives it with the configured commands and
// writes the export. The document is closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")
	defer a.closeAll()

	a.statusServer()
	defer a.closeStatusServer()

	a.logger.Info("🚀 Starting layout...", "form", a.template.Name)
	a.view.StartLayout(ctx)
	a.publish(ctx)
	a.logger.Debug("Layout finished.", "ready", a.view.IsReady())

	opts := []command.Option{command.WithAfterCommand(a.publish)}
	if a.transport != nil {
		opts = append(opts, command.WithTransport(a.transport))
	}
	runner := command.New(a.view, a.outW, opts...)

	switch path := a.config.CommandsPath; path {
	case "":
		a.logger.Debug("No commands configured.")
	case ShellCommands:
		if err := runner.Shell(ctx, a.config.HistoryFile, a.outW); err != nil {
			return err
		}
	default:
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open command script: %w", err)
		}
		err = runner.RunScript(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("command script %s: %w", path, err)
		}
	}

	if !runner.Closed() {
		a.view.RunDocClose(ctx)
		a.publish(ctx)
	}
	if a.config.ExportPath != "" {
		if err := a.exportData(ctx, a.config.ExportPath); err != nil {
			return err
		}
	}

	a.logger.Info("🏁 Document closed.", "messages", len(a.policy.Messages()))
	a.logger.Debug("App.Run method finished.")
	return nil
}
