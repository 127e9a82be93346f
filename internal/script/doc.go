// Package script defines the value type scripts produce and the contract
// between the runtime and the script engines.
//
// An Engine never touches the form tree directly. It extracts the references
// a script makes, asks its Scope to materialize them and evaluates the script
// over the result. The Scope records which form nodes were read so the
// calculation engine can rebuild dependencies.
package script
