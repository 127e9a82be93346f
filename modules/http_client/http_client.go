// Package http_client provides the submit transport that posts exported data
// packets over HTTP.
package http_client

import (
	"github.com/vk/formrun/internal/registry"
)

// Register registers the transport for both http and https targets.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTransport("http", m.NewTransport)
	r.RegisterTransport("https", m.NewTransport)
}
