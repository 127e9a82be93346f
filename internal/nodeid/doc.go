/*
Package nodeid parses and renders the dotted references scripts use to name
form nodes, e.g. `order.items[1].price` or `items[*].price`.

A reference is a dot-separated list of segments. Each segment is a name with
an optional same-name index: a number picks one occurrence, `*` picks all of
them, and no index means "the occurrence matching the scope" (usually 0).

The first segment may be an anchor: `$` is the node running the script,
`$form` is the form root and `$data` is the data root. References without an
anchor are resolved relative to the script's scope.
*/
package nodeid
