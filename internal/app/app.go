package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/docview"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/hcl"
	"github.com/vk/formrun/internal/hclscript"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/script"
	"github.com/vk/formrun/internal/starscript"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx      context.Context
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	policy   *host.AutoPolicy
	template *hcl.Template
	doc      *formdoc.Document
	view     *docview.View

	layout    host.LayoutSink
	transport registry.Transport
	closers   []io.Closer

	httpServer *http.Server

	mu       sync.RWMutex
	snapshot formdoc.Snapshot
}

// NewApp is the constructor for the main application. It loads the form and
// its data, wires the registry modules and returns a view ready to start.
// Startup failures panic; the entrypoint recovers them into an exit error.
func NewApp(outW io.Writer, cfg *Config, loader *hcl.Loader, modules ...registry.Module) *App {
	extra, closers, err := extraHandlers(cfg, outW)
	if err != nil {
		panic(err)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW, extra...)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.", "extra_handlers", len(extra))

	a := &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: registry.New(),
		closers:  closers,
		policy: &host.AutoPolicy{
			Calculations: !cfg.NoCalculate,
			Validations:  !cfg.NoValidate,
			Answer:       host.ChoiceNo,
		},
	}
	if cfg.Answer == "yes" {
		a.policy.Answer = host.ChoiceYes
	}

	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	if err := a.registry.Load(ctx, modules...); err != nil {
		// This is a programmer error (mismatch between modules), so we panic.
		panic(err)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := a.LoadForm(ctx, loader); err != nil {
		panic(fmt.Errorf("failed to load form: %w", err))
	}
	if err := a.connect(ctx); err != nil {
		a.closeAll()
		panic(err)
	}

	scripts := script.NewRegistry(a.template.ScriptLanguage)
	scripts.Register(hclscript.Language, hclscript.New())
	scripts.Register(starscript.Language, starscript.New())
	logger.Debug("Script engines registered.", "languages", scripts.Languages(), "default", scripts.Default())

	a.view = docview.New(a.doc, scripts, a.policy,
		docview.WithLayout(a.layout),
		docview.WithRegistry(a.registry),
		docview.WithTitle(a.template.Name),
	)
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// View returns the document view. This is primarily for testing.
func (a *App) View() *docview.View {
	return a.view
}

// Messages returns every message box shown so far.
func (a *App) Messages() []host.Message {
	return a.policy.Messages()
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("Failed to release resource.", "error", err)
		}
	}
	a.closers = nil
}
