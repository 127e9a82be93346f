package validate

import (
	"slices"

	"github.com/vk/formrun/internal/formtree"
)

// Queue holds the nodes waiting for validation, each at most once.
type Queue struct {
	nodes []formtree.NodeID
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// AddValidateWidget queues node unless it is already queued.
func (q *Queue) AddValidateWidget(node formtree.NodeID) {
	if !slices.Contains(q.nodes, node) {
		q.nodes = append(q.nodes, node)
	}
}

// Pending returns the queued nodes in order.
func (q *Queue) Pending() []formtree.NodeID {
	return slices.Clone(q.nodes)
}

// Clear empties the queue.
func (q *Queue) Clear() {
	q.nodes = q.nodes[:0]
}
