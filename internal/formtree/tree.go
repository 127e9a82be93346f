package formtree

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchNode is returned for IDs outside the arena.
	ErrNoSuchNode = errors.New("no such form node")
	// ErrHasParent is returned when attaching a node that is already attached.
	ErrHasParent = errors.New("form node already has a parent")
	// ErrCycle is returned when attaching a node below itself.
	ErrCycle = errors.New("form node cannot become its own descendant")
)

// Tree is an arena of form nodes. Nodes are never freed; a node removed from
// the tree keeps its ID and can be re-attached.
type Tree struct {
	nodes []*Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Add stores n as a detached node and returns its ID. The name hash is
// derived from n.Name and Template is reset to None.
func (t *Tree) Add(n Node) NodeID {
	n.NameHash = Hash(n.Name)
	n.parent = None
	n.children = nil
	n.Template = None
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &n)
	return id
}

// Len returns the number of nodes ever added.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Valid reports whether id addresses a node of this tree.
func (t *Tree) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Node returns the node for id, or nil when id is invalid.
func (t *Tree) Node(id NodeID) *Node {
	if !t.Valid(id) {
		return nil
	}
	return t.nodes[id]
}

// Parent returns the parent of id, or None.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.Node(id); n != nil {
		return n.parent
	}
	return None
}

// Children returns a copy of the ordered children of id.
func (t *Tree) Children(id NodeID) []NodeID {
	n := t.Node(id)
	if n == nil || len(n.children) == 0 {
		return nil
	}
	out := make([]NodeID, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of children of id.
func (t *Tree) ChildCount(id NodeID) int {
	if n := t.Node(id); n != nil {
		return len(n.children)
	}
	return 0
}

// IndexOf returns the position of id among its siblings, or -1.
func (t *Tree) IndexOf(id NodeID) int {
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

// NextSibling returns the sibling following id, or None.
func (t *Tree) NextSibling(id NodeID) NodeID {
	p := t.Node(t.Parent(id))
	if p == nil {
		return None
	}
	i := t.IndexOf(id)
	if i < 0 || i+1 >= len(p.children) {
		return None
	}
	return p.children[i+1]
}

// PrevSibling returns the sibling preceding id, or None.
func (t *Tree) PrevSibling(id NodeID) NodeID {
	p := t.Node(t.Parent(id))
	if p == nil {
		return None
	}
	i := t.IndexOf(id)
	if i <= 0 {
		return None
	}
	return p.children[i-1]
}

// AppendChild attaches child as the last child of parent.
func (t *Tree) AppendChild(parent, child NodeID) error {
	return t.InsertChild(parent, child, t.ChildCount(parent))
}

// InsertChild attaches child at position index among parent's children.
// An index past the end appends.
func (t *Tree) InsertChild(parent, child NodeID, index int) error {
	p, c := t.Node(parent), t.Node(child)
	if p == nil || c == nil {
		return fmt.Errorf("insert %d under %d: %w", child, parent, ErrNoSuchNode)
	}
	if c.parent != None {
		return fmt.Errorf("insert %d under %d: %w", child, parent, ErrHasParent)
	}
	for a := parent; a != None; a = t.Parent(a) {
		if a == child {
			return fmt.Errorf("insert %d under %d: %w", child, parent, ErrCycle)
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, None)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = child
	c.parent = parent
	return nil
}

// InsertBefore attaches child immediately before the sibling before. A None
// anchor appends.
func (t *Tree) InsertBefore(parent, child, before NodeID) error {
	if before == None {
		return t.AppendChild(parent, child)
	}
	if t.Parent(before) != parent {
		return fmt.Errorf("anchor %d is not a child of %d: %w", before, parent, ErrNoSuchNode)
	}
	return t.InsertChild(parent, child, t.IndexOf(before))
}

// InsertAfter attaches child immediately after the sibling after. A None
// anchor prepends.
func (t *Tree) InsertAfter(parent, child, after NodeID) error {
	if after == None {
		return t.InsertChild(parent, child, 0)
	}
	if t.Parent(after) != parent {
		return fmt.Errorf("anchor %d is not a child of %d: %w", after, parent, ErrNoSuchNode)
	}
	return t.InsertChild(parent, child, t.IndexOf(after)+1)
}

// Detach removes id from its parent. Detaching a detached node is a no-op.
func (t *Tree) Detach(id NodeID) {
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

// Walk visits root and its descendants in document order. Returning false
// from fn skips the node's children.
func (t *Tree) Walk(root NodeID, fn func(NodeID) bool) {
	n := t.Node(root)
	if n == nil {
		return
	}
	if !fn(root) {
		return
	}
	for _, c := range t.Children(root) {
		t.Walk(c, fn)
	}
}

// Root returns the top-most ancestor of id.
func (t *Tree) Root(id NodeID) NodeID {
	for p := t.Parent(id); p != None; p = t.Parent(id) {
		id = p
	}
	return id
}

// IsDescendant reports whether id is root or lies below it.
func (t *Tree) IsDescendant(id, root NodeID) bool {
	for a := id; a != None; a = t.Parent(a) {
		if a == root {
			return true
		}
	}
	return false
}

// CloneNode copies the node src into a new detached node without children.
// The copy records its source in Template.
func (t *Tree) CloneNode(src NodeID) (NodeID, error) {
	n := t.Node(src)
	if n == nil {
		return None, fmt.Errorf("clone %d: %w", src, ErrNoSuchNode)
	}
	cp := *n
	cp.Events = append([]Event(nil), n.Events...)
	if n.Occur != nil {
		o := *n.Occur
		cp.Occur = &o
	}
	if n.Calculate != nil {
		c := *n.Calculate
		cp.Calculate = &c
	}
	if n.Validate != nil {
		v := *n.Validate
		cp.Validate = &v
	}
	id := t.Add(cp)
	t.nodes[id].Template = src
	return id, nil
}

// Clone deep-copies the subtree rooted at src into new detached nodes.
func (t *Tree) Clone(src NodeID) (NodeID, error) {
	id, err := t.CloneNode(src)
	if err != nil {
		return None, err
	}
	for _, c := range t.nodes[src].children {
		cc, err := t.Clone(c)
		if err != nil {
			return None, err
		}
		if err := t.AppendChild(id, cc); err != nil {
			return None, err
		}
	}
	return id, nil
}

// FindChild returns the nth child of parent named name (counting only
// same-named children), or None.
func (t *Tree) FindChild(parent NodeID, name string, nth int) NodeID {
	h := Hash(name)
	seen := 0
	for _, c := range t.Children(parent) {
		cn := t.nodes[c]
		if cn.NameHash != h || cn.Name != name {
			continue
		}
		if seen == nth {
			return c
		}
		seen++
	}
	return None
}

// SameNameIndex returns how many preceding siblings share id's name.
func (t *Tree) SameNameIndex(id NodeID) int {
	n := t.Node(id)
	if n == nil {
		return 0
	}
	idx := 0
	for s := t.PrevSibling(id); s != None; s = t.PrevSibling(s) {
		if t.nodes[s].NameHash == n.NameHash && t.nodes[s].Name == n.Name {
			idx++
		}
	}
	return idx
}

// Path renders a dotted reference from the root's children down to id, with
// same-name indexes, e.g. "items[1].price".
func (t *Tree) Path(id NodeID) string {
	var segs []string
	for a := id; a != None && t.Parent(a) != None; a = t.Parent(a) {
		n := t.nodes[a]
		name := n.Name
		if name == "" {
			name = "#" + n.Element.String()
		}
		segs = append(segs, fmt.Sprintf("%s[%d]", name, t.SameNameIndex(a)))
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, ".")
}
