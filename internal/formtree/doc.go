// Package formtree holds the form element tree as an arena of nodes
// addressed by stable NodeIDs.
//
// Template nodes and live form nodes share one arena: templates are detached
// subtrees that the instance manager clones from, while the form subtree
// hangs off a single ElementForm root. Children are stored as an ordered
// slice on the parent and the parent is stored as a plain index, so
// structural edits never rewrite sibling pointers.
//
// A node that is detached keeps its ID. Whether it is still part of the live
// form is answered by IsDescendant against the form root.
package formtree
