package app

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/hcl"
	"github.com/vk/formrun/internal/host"
)

// LoadForm reads the form template and the optional data packet and merges
// them into the live document.
func (a *App) LoadForm(ctx context.Context, loader *hcl.Loader) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading form...", "form_path", a.config.FormPath, "data_path", a.config.DataPath)

	tmpl, err := loader.LoadFile(ctx, a.config.FormPath)
	if err != nil {
		return err
	}
	a.template = tmpl

	data := databind.NewTree(tmpl.Name)
	if a.config.DataPath != "" {
		f, err := os.Open(a.config.DataPath)
		if err != nil {
			return fmt.Errorf("failed to open data packet: %w", err)
		}
		defer f.Close()
		if data, err = databind.DecodeYAML(f, tmpl.Name); err != nil {
			return fmt.Errorf("failed to read data packet %s: %w", a.config.DataPath, err)
		}
	}

	doc, err := formdoc.Merge(ctx, tmpl.Tree, tmpl.Root, data)
	if err != nil {
		return err
	}
	a.doc = doc
	logger.Info("Form loaded successfully.", "form", tmpl.Name, "nodes", tmpl.Tree.Len())
	return nil
}

// connect resolves the layout sink and submit transport URLs against the
// registered factories.
func (a *App) connect(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	sinks := host.Sinks{host.LogSink{}}

	if a.config.SignalURL != "" {
		scheme, err := urlScheme(a.config.SignalURL)
		if err != nil {
			return fmt.Errorf("invalid signal url: %w", err)
		}
		factory, ok := a.registry.Sink(scheme)
		if !ok {
			return fmt.Errorf("no layout sink registered for scheme '%s'", scheme)
		}
		sink, closer, err := factory(ctx, a.config.SignalURL)
		if err != nil {
			return fmt.Errorf("failed to connect layout sink: %w", err)
		}
		sinks = append(sinks, sink)
		a.closers = append(a.closers, closer)
		logger.Info("Layout sink connected.", "scheme", scheme)
	}
	a.layout = sinks

	if a.config.SubmitURL != "" {
		scheme, err := urlScheme(a.config.SubmitURL)
		if err != nil {
			return fmt.Errorf("invalid submit url: %w", err)
		}
		factory, ok := a.registry.Transport(scheme)
		if !ok {
			return fmt.Errorf("no submit transport registered for scheme '%s'", scheme)
		}
		if a.transport, err = factory(ctx, a.config.SubmitURL); err != nil {
			return fmt.Errorf("failed to create submit transport: %w", err)
		}
		logger.Debug("Submit transport ready.", "scheme", scheme)
	}
	return nil
}

func urlScheme(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("%q has no scheme", raw)
	}
	return u.Scheme, nil
}

// exportData writes the data packet to path.
func (a *App) exportData(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := a.doc.Data.EncodeYAML(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Data packet exported.", "path", path)
	return nil
}
