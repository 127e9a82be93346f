package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/formrun/internal/ctxlog"
)

// publish refreshes the snapshot served by the status server.
func (app *App) publish(_ context.Context) {
	snap := app.doc.Snapshot(app.doc.Root, app.view.Instances().Count)
	app.mu.Lock()
	app.snapshot = snap
	app.mu.Unlock()
}

// healthHandler answers liveness probes.
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// formHandler serves the last published snapshot as JSON.
func (app *App) formHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Form endpoint hit.", "remote_addr", r.RemoteAddr)

	app.mu.RLock()
	body, err := json.Marshal(app.snapshot)
	app.mu.RUnlock()
	if err != nil {
		logger.Error("Failed to encode form snapshot", "error", err)
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (app *App) statusMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", app.healthHandler)
	mux.HandleFunc("GET /form", app.formHandler)
	return mux
}

// statusServer initializes and runs the status HTTP server.
func (app *App) statusServer() {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Configuring status server.")
	if app.config.StatusPort <= 0 {
		logger.Debug("Status server not started: disabled")
		return
	}

	addr := fmt.Sprintf(":%d", app.config.StatusPort)
	app.httpServer = &http.Server{
		Addr:              addr,
		Handler:           app.statusMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Run the server in a goroutine so it doesn't block.
	go func() {
		logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe will return an error on graceful shutdown.
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
}

func (app *App) closeStatusServer() error {
	logger := ctxlog.FromContext(app.ctx)
	if app.httpServer == nil {
		logger.Debug("Status server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(app.ctx, 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down status server...")
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Status server shut down gracefully.")
	return nil
}
