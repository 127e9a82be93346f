package instancemgr

import (
	"context"
	"slices"

	"github.com/vk/formrun/internal/databind"
)

type bucketKey struct {
	parent databind.DataID
	hash   uint32
}

type bucket struct {
	moved    []databind.DataID
	boundary []databind.DataID
}

// ReorderDataNodes moves the data nodes of moved so that, within every
// (parent, name) group they share with boundary, they sit immediately before
// the first boundary node or immediately after the last one. Nodes without a
// parent or a name are ignored, as are groups where either side is empty.
func (m *Manager) ReorderDataNodes(ctx context.Context, moved, boundary []databind.DataID, insertBefore bool) {
	var order []bucketKey
	buckets := make(map[bucketKey]*bucket)
	keyOf := func(id databind.DataID) (bucketKey, bool) {
		n := m.doc.Data.Node(id)
		p := m.doc.Data.Parent(id)
		if n == nil || p == databind.None || n.NameHash == 0 {
			return bucketKey{}, false
		}
		return bucketKey{parent: p, hash: n.NameHash}, true
	}

	for _, id := range moved {
		k, ok := keyOf(id)
		if !ok {
			continue
		}
		b := buckets[k]
		if b == nil {
			b = &bucket{}
			buckets[k] = b
			order = append(order, k)
		}
		if !slices.Contains(b.moved, id) {
			b.moved = append(b.moved, id)
		}
	}
	for _, id := range boundary {
		k, ok := keyOf(id)
		if !ok {
			continue
		}
		b := buckets[k]
		if b == nil {
			b = &bucket{}
			buckets[k] = b
			order = append(order, k)
		}
		if i := slices.Index(b.moved, id); i >= 0 {
			b.moved = slices.Delete(b.moved, i, i+1)
			continue
		}
		if !slices.Contains(b.boundary, id) {
			b.boundary = append(b.boundary, id)
		}
	}

	for _, k := range order {
		b := buckets[k]
		if len(b.moved) == 0 || len(b.boundary) == 0 {
			continue
		}
		m.sortByDocument(b.moved)
		m.sortByDocument(b.boundary)

		for _, id := range b.moved {
			m.doc.Data.Detach(id)
		}
		anchor := b.boundary[0]
		if !insertBefore {
			anchor = m.doc.Data.NextSibling(b.boundary[len(b.boundary)-1])
		}
		for _, id := range b.moved {
			// Detached nodes and an anchor that is a child of k.parent
			// always satisfy InsertBefore.
			_ = m.doc.Data.InsertBefore(k.parent, id, anchor)
		}
		if m.layout != nil {
			m.layout.DataReordered(ctx, k.parent, m.doc.Data.Path(k.parent))
		}
	}
}

// sortByDocument orders siblings by their position under their parent.
func (m *Manager) sortByDocument(ids []databind.DataID) {
	slices.SortFunc(ids, func(a, b databind.DataID) int {
		return m.doc.Data.IndexOf(a) - m.doc.Data.IndexOf(b)
	})
}
