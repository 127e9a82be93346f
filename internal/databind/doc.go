// Package databind holds the data tree a form is merged with and the index
// that records which form nodes are bound to which data nodes.
//
// Data nodes live in an arena like form nodes do. A data node stays in the
// tree for as long as at least one form node is bound to it; Index.Unbind
// reports the nodes whose last binding went away so callers can detach them.
package databind
