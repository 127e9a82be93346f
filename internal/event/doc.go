// Package event dispatches activities over the form tree.
//
// ExecEventActivityByDeepFirst visits the children of a container before
// the container itself and combines every result with bitwise OR. Calculate,
// Validate and InitCalculate are routed to the calculation engine and the
// validation pipeline; every other activity runs the node's handlers.
package event
