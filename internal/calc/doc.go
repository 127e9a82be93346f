// Package calc schedules and runs calculation scripts.
//
// Every evaluation of a calculate script records which data nodes it read.
// When one of those data nodes changes, the nodes whose calculations read it
// are queued again. The queue is drained depth-first: whatever processing a
// node appends is drained before the next entry. A visit counter per node
// bounds the drain so that a cycle of calculations terminates; it is a cut-off,
// not cycle detection, and a legitimate chain that revisits a node more than
// RefCountThreshold times is truncated as well.
package calc
