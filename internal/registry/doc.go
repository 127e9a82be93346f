// Package registry provides the central "glue" for the module system.
//
// The Registry maps the names scripts and configuration use (e.g. "sum",
// "socketio") to the compiled Go functions, layout-sink factories and submit
// transports that implement them. Modules populate it during application
// startup; it is then validated so that a malformed registration fails
// before any form runs.
package registry
