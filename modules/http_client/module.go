package http_client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/registry"
)

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 30 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct {
	// Timeout is a duration string such as "10s". Empty means
	// DefaultTimeout.
	Timeout string
}

// Transport posts data packets to a fixed URL.
type Transport struct {
	URL    string
	Client *http.Client
}

// NewClient returns the client shared by every submission of a transport.
func NewClient(timeout string) (*http.Client, error) {
	d := DefaultTimeout
	if timeout != "" {
		var err error
		if d, err = time.ParseDuration(timeout); err != nil {
			return nil, fmt.Errorf("http client timeout: %w", err)
		}
	}
	return &http.Client{
		Timeout: d,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}, nil
}

// NewTransport is the transport factory for http and https targets.
func (m *Module) NewTransport(_ context.Context, target string) (registry.Transport, error) {
	client, err := NewClient(m.Timeout)
	if err != nil {
		return nil, err
	}
	return &Transport{URL: target, Client: client}, nil
}

// Submit posts packet and fails on any non-2xx response.
func (t *Transport) Submit(ctx context.Context, contentType string, packet []byte) error {
	logger := ctxlog.FromContext(ctx).With("url", t.URL)
	logger.Info("Submitting data packet.", "bytes", len(packet))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(packet))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Info("Received HTTP response.", "status", resp.Status)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submit rejected with %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return nil
}
