// Package docview drives a merged form document through its lifecycle.
//
// A View owns the calculation engine, the validation pipeline, the event
// dispatcher and the instance manager of one document and wires them
// together: value changes queue calculations and validations, structural
// changes queue initialization, and UpdateDocView flushes everything in the
// same order on every change. Nested LockUpdate/UnlockUpdate pairs batch
// several changes into one flush.
//
// The View also registers the host functions scripts use to change the form
// (instance_count, add_instance, set_value, exec_event and friends).
package docview
