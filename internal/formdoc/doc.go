// Package formdoc bundles a form tree, its data tree and the binding index
// into a Document.
//
// Merge instantiates a template against a data packet: containers bind to
// data groups of the same name, value nodes bind to data values, and every
// repeatable subform gets an instance manager followed by its run of
// instances. Scope resolves the references a script makes relative to the
// node that runs it and records which data nodes were read.
package formdoc
