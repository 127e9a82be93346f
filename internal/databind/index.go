package databind

import (
	"slices"

	"github.com/vk/formrun/internal/formtree"
)

// Index maps form nodes to the data nodes they are bound to and keeps the
// reverse list of bind items per data node.
type Index struct {
	forward map[formtree.NodeID][]DataID
	items   map[DataID][]formtree.NodeID
}

// NewIndex returns an empty binding index.
func NewIndex() *Index {
	return &Index{
		forward: make(map[formtree.NodeID][]DataID),
		items:   make(map[DataID][]formtree.NodeID),
	}
}

// Bind records that form reads and writes data. Repeated binds are ignored.
func (x *Index) Bind(form formtree.NodeID, data DataID) {
	if !slices.Contains(x.forward[form], data) {
		x.forward[form] = append(x.forward[form], data)
	}
	if !slices.Contains(x.items[data], form) {
		x.items[data] = append(x.items[data], form)
	}
}

// BoundData returns the primary data node bound to form, or None.
func (x *Index) BoundData(form formtree.NodeID) DataID {
	if ds := x.forward[form]; len(ds) > 0 {
		return ds[0]
	}
	return None
}

// AllBound returns every data node bound to form.
func (x *Index) AllBound(form formtree.NodeID) []DataID {
	return slices.Clone(x.forward[form])
}

// BindItems returns the form nodes bound to data.
func (x *Index) BindItems(data DataID) []formtree.NodeID {
	return slices.Clone(x.items[data])
}

// Unbind releases every binding of form and returns the data nodes that are
// left with no bind items.
func (x *Index) Unbind(form formtree.NodeID) []DataID {
	var orphans []DataID
	for _, d := range x.forward[form] {
		items := slices.DeleteFunc(x.items[d], func(n formtree.NodeID) bool { return n == form })
		if len(items) == 0 {
			delete(x.items, d)
			orphans = append(orphans, d)
			continue
		}
		x.items[d] = items
	}
	delete(x.forward, form)
	return orphans
}
