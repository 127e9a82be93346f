// Package instancemgr implements the operations of an instance manager: the
// node that owns a run of same-named repeatable subforms.
//
// A run is the sequence of Subform or SubformSet siblings that directly
// follows its manager. The run ends at the next instance manager or at the
// first sibling whose name differs from the first instance's. Every
// structural change keeps the bound data groups in the same relative order
// as their form instances and ends with a layout signal on the form root.
package instancemgr
