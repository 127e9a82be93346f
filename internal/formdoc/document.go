package formdoc

import (
	"errors"
	"fmt"

	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/nodeid"
)

// ErrUnresolved is returned when a reference names no node.
var ErrUnresolved = errors.New("reference does not resolve")

// Document is a merged form with its data.
type Document struct {
	Form *formtree.Tree
	Data *databind.Tree
	Bind *databind.Index

	// Root is the live form root; Template is the template root it was
	// merged from.
	Root     formtree.NodeID
	Template formtree.NodeID
}

// Alive reports whether id is part of the live form.
func (d *Document) Alive(id formtree.NodeID) bool {
	return d.Form.IsDescendant(id, d.Root)
}

// RawValue returns the raw text value of id.
func (d *Document) RawValue(id formtree.NodeID) string {
	if n := d.Form.Node(id); n != nil {
		return n.Value
	}
	return ""
}

// SetValue writes text to the node and every data node bound to it, and
// shifts the null-state flags. It returns whether the value changed.
func (d *Document) SetValue(id formtree.NodeID, text string) bool {
	n := d.Form.Node(id)
	if n == nil {
		return false
	}
	changed := n.Value != text
	n.Value = text
	n.PreNull = n.IsNull
	n.IsNull = text == ""
	for _, data := range d.Bind.AllBound(id) {
		if dn := d.Data.Node(data); dn != nil {
			dn.Value = text
		}
	}
	return changed
}

// DataScope returns the data node the children of id bind under: the data
// bound to id or its nearest bound ancestor, else the data root.
func (d *Document) DataScope(id formtree.NodeID) databind.DataID {
	for a := id; a != formtree.None; a = d.Form.Parent(a) {
		if data := d.Bind.BoundData(a); data != databind.None {
			if dn := d.Data.Node(data); dn != nil && dn.Kind == databind.KindGroup {
				return data
			}
		}
	}
	return d.Data.Root()
}

// Resolve returns the single form node ref names relative to from.
// Unanchored references search the ancestors of from for a container with a
// child of the first segment's name.
func (d *Document) Resolve(from formtree.NodeID, ref string) (formtree.NodeID, error) {
	addr, err := nodeid.Parse(ref)
	if err != nil {
		return formtree.None, err
	}
	if addr.Multi() {
		return formtree.None, fmt.Errorf("resolve %q: reference selects several nodes", ref)
	}

	cur := d.Root
	path := addr.Path
	switch addr.Anchor {
	case nodeid.AnchorSelf:
		cur = from
	case nodeid.AnchorData:
		return formtree.None, fmt.Errorf("resolve %q: data references do not name form nodes", ref)
	case nodeid.AnchorScope:
		if len(path) == 0 {
			return formtree.None, fmt.Errorf("resolve %q: %w", ref, ErrUnresolved)
		}
		cur = d.searchUp(from, path[0].Name)
		if cur == formtree.None {
			return formtree.None, fmt.Errorf("resolve %q: %w", ref, ErrUnresolved)
		}
	}
	for _, seg := range path {
		next := d.Form.FindChild(cur, seg.Name, seg.Occurrence())
		if next == formtree.None {
			return formtree.None, fmt.Errorf("resolve %q: no %s under %q: %w", ref, seg.Name, d.Form.Path(cur), ErrUnresolved)
		}
		cur = next
	}
	return cur, nil
}

// ResolveAll returns every form node ref names relative to from, in
// document order. Segments written name[*] select every same-named child.
func (d *Document) ResolveAll(from formtree.NodeID, ref string) ([]formtree.NodeID, error) {
	addr, err := nodeid.Parse(ref)
	if err != nil {
		return nil, err
	}
	cur := []formtree.NodeID{d.Root}
	path := addr.Path
	switch addr.Anchor {
	case nodeid.AnchorSelf:
		cur = []formtree.NodeID{from}
	case nodeid.AnchorData:
		return nil, fmt.Errorf("resolve %q: data references do not name form nodes", ref)
	case nodeid.AnchorScope:
		if len(path) == 0 {
			return nil, fmt.Errorf("resolve %q: %w", ref, ErrUnresolved)
		}
		up := d.searchUp(from, path[0].Name)
		if up == formtree.None {
			return nil, fmt.Errorf("resolve %q: %w", ref, ErrUnresolved)
		}
		cur = []formtree.NodeID{up}
	}
	for _, seg := range path {
		var next []formtree.NodeID
		for _, parent := range cur {
			if !seg.All() {
				if c := d.Form.FindChild(parent, seg.Name, seg.Occurrence()); c != formtree.None {
					next = append(next, c)
				}
				continue
			}
			for i := 0; ; i++ {
				c := d.Form.FindChild(parent, seg.Name, i)
				if c == formtree.None {
					break
				}
				next = append(next, c)
			}
		}
		cur = next
	}
	return cur, nil
}

// InstanceManager returns the instance manager of the run ref names. ref may
// name the run ("items") or the manager itself ("_items").
func (d *Document) InstanceManager(from formtree.NodeID, ref string) (formtree.NodeID, error) {
	addr, err := nodeid.Parse(ref)
	if err != nil {
		return formtree.None, err
	}
	if len(addr.Path) == 0 {
		return formtree.None, fmt.Errorf("instance manager %q: %w", ref, ErrUnresolved)
	}
	last := addr.Path[len(addr.Path)-1]
	name := last.Name
	if name[0] != '_' {
		name = "_" + name
	}
	parent := d.Root
	switch {
	case len(addr.Path) > 1:
		prefix := &nodeid.Address{Anchor: addr.Anchor, Path: addr.Path[:len(addr.Path)-1]}
		if parent, err = d.Resolve(from, prefix.String()); err != nil {
			return formtree.None, err
		}
	case addr.Anchor == nodeid.AnchorScope:
		parent = d.searchUp(from, name)
	case addr.Anchor == nodeid.AnchorSelf:
		parent = from
	}
	im := d.Form.FindChild(parent, name, 0)
	if im == formtree.None || d.Form.Node(im).Element != formtree.ElementInstanceManager {
		return formtree.None, fmt.Errorf("instance manager %q: %w", ref, ErrUnresolved)
	}
	return im, nil
}

// searchUp returns the nearest container at or above from that has a child
// named name, or None.
func (d *Document) searchUp(from formtree.NodeID, name string) formtree.NodeID {
	for cur := from; cur != formtree.None; cur = d.Form.Parent(cur) {
		if d.Form.FindChild(cur, name, 0) != formtree.None {
			return cur
		}
	}
	return formtree.None
}
