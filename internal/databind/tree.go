package databind

import (
	"errors"
	"fmt"

	"github.com/vk/formrun/internal/formtree"
)

// DataID is a stable index into a data Tree.
type DataID int32

// None is the null DataID.
const None DataID = -1

// ErrNoSuchData is returned for IDs outside the data arena.
var ErrNoSuchData = errors.New("no such data node")

// Kind distinguishes data groups from value nodes.
type Kind uint8

const (
	KindGroup Kind = iota
	KindValue
)

// Node is a value-holding node of the data tree.
type Node struct {
	Kind     Kind
	Name     string
	NameHash uint32
	Value    string

	parent   DataID
	children []DataID
}

// Tree is the data tree arena. The root group is created by NewTree.
type Tree struct {
	nodes []*Node
	root  DataID
}

// NewTree returns a data tree holding only its root group.
func NewTree(rootName string) *Tree {
	t := &Tree{}
	t.root = t.Add(KindGroup, rootName, "")
	return t
}

// Root returns the root group.
func (t *Tree) Root() DataID { return t.root }

// Add stores a detached node and returns its ID.
func (t *Tree) Add(kind Kind, name, value string) DataID {
	id := DataID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{
		Kind:     kind,
		Name:     name,
		NameHash: formtree.Hash(name),
		Value:    value,
		parent:   None,
	})
	return id
}

// Node returns the node for id, or nil.
func (t *Tree) Node(id DataID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Parent returns the parent of id, or None.
func (t *Tree) Parent(id DataID) DataID {
	if n := t.Node(id); n != nil {
		return n.parent
	}
	return None
}

// Children returns a copy of the ordered children of id.
func (t *Tree) Children(id DataID) []DataID {
	n := t.Node(id)
	if n == nil || len(n.children) == 0 {
		return nil
	}
	return append([]DataID(nil), n.children...)
}

// IndexOf returns the position of id among its siblings, or -1.
func (t *Tree) IndexOf(id DataID) int {
	p := t.Node(t.Parent(id))
	if p == nil {
		return -1
	}
	for i, c := range p.children {
		if c == id {
			return i
		}
	}
	return -1
}

// NextSibling returns the sibling after id, or None.
func (t *Tree) NextSibling(id DataID) DataID {
	p := t.Node(t.Parent(id))
	i := t.IndexOf(id)
	if p == nil || i < 0 || i+1 >= len(p.children) {
		return None
	}
	return p.children[i+1]
}

// Append attaches child as the last child of parent.
func (t *Tree) Append(parent, child DataID) error {
	return t.InsertBefore(parent, child, None)
}

// InsertBefore attaches child before the sibling before; a None anchor
// appends.
func (t *Tree) InsertBefore(parent, child, before DataID) error {
	p, c := t.Node(parent), t.Node(child)
	if p == nil || c == nil {
		return fmt.Errorf("insert data %d under %d: %w", child, parent, ErrNoSuchData)
	}
	if c.parent != None {
		return fmt.Errorf("insert data %d under %d: already attached", child, parent)
	}
	idx := len(p.children)
	if before != None {
		if t.Parent(before) != parent {
			return fmt.Errorf("data anchor %d is not a child of %d", before, parent)
		}
		idx = t.IndexOf(before)
	}
	p.children = append(p.children, None)
	copy(p.children[idx+1:], p.children[idx:])
	p.children[idx] = child
	c.parent = parent
	return nil
}

// Detach removes id from its parent.
func (t *Tree) Detach(id DataID) {
	n := t.Node(id)
	if n == nil || n.parent == None {
		return
	}
	p := t.nodes[n.parent]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = None
}

// FindChild returns the nth child of parent named name, or None.
func (t *Tree) FindChild(parent DataID, name string, nth int) DataID {
	seen := 0
	for _, c := range t.Children(parent) {
		if t.nodes[c].Name != name {
			continue
		}
		if seen == nth {
			return c
		}
		seen++
	}
	return None
}

// Attached reports whether id is connected to the root.
func (t *Tree) Attached(id DataID) bool {
	for a := id; a != None; a = t.Parent(a) {
		if a == t.root {
			return true
		}
	}
	return false
}

// Walk visits id and its descendants in document order.
func (t *Tree) Walk(id DataID, fn func(DataID)) {
	if t.Node(id) == nil {
		return
	}
	fn(id)
	for _, c := range t.Children(id) {
		t.Walk(c, fn)
	}
}

// Path renders the dotted path of id below the root, e.g. "items[1].price".
func (t *Tree) Path(id DataID) string {
	if id == t.root {
		return ""
	}
	n := t.Node(id)
	if n == nil {
		return ""
	}
	idx := 0
	p := t.Parent(id)
	for _, s := range t.Children(p) {
		if s == id {
			break
		}
		if t.nodes[s].Name == n.Name {
			idx++
		}
	}
	seg := fmt.Sprintf("%s[%d]", n.Name, idx)
	if p == None || p == t.root {
		return seg
	}
	return t.Path(p) + "." + seg
}
