package formdoc

import (
	"context"
	"fmt"

	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/nodeid"
	"github.com/vk/formrun/internal/script"
)

// Functions is the set of host functions a script may call.
type Functions interface {
	Names() []string
	Call(ctx context.Context, self formtree.NodeID, name string, args []script.Value) (script.Value, error)
}

// Scope is the script.Scope for one evaluation on behalf of a node.
type Scope struct {
	doc   *Document
	self  formtree.NodeID
	funcs Functions

	reads []databind.DataID
	seen  map[databind.DataID]bool
}

// NewScope returns a scope evaluating on behalf of self. funcs may be nil.
func (d *Document) NewScope(self formtree.NodeID, funcs Functions) *Scope {
	return &Scope{doc: d, self: self, funcs: funcs, seen: map[databind.DataID]bool{}}
}

// Reads returns the data nodes read so far, in first-read order.
func (s *Scope) Reads() []databind.DataID {
	return append([]databind.DataID(nil), s.reads...)
}

func (s *Scope) Functions() []string {
	if s.funcs == nil {
		return nil
	}
	return s.funcs.Names()
}

func (s *Scope) Call(ctx context.Context, name string, args []script.Value) (script.Value, error) {
	if s.funcs == nil {
		return script.Undefined(), fmt.Errorf("unknown function %q", name)
	}
	return s.funcs.Call(context.WithValue(ctx, scopeKey{}, s), s.self, name, args)
}

type scopeKey struct{}

// ScopeFrom returns the scope of the evaluation that called a host
// function, or nil outside of one.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Record marks the data bound to node as read by the evaluation. Host
// functions that read values directly use it to keep dependencies complete.
func (s *Scope) Record(node formtree.NodeID) {
	for _, data := range s.doc.Bind.AllBound(node) {
		s.record(data)
	}
}

// Materialize implements script.Scope. Runs of repeatable subforms become
// lists; a segment with an index materializes only that instance and leaves
// empty objects in the other positions.
func (s *Scope) Materialize(_ context.Context, refs []*nodeid.Address) (map[string]any, error) {
	out := make(map[string]any, len(refs))
	for _, ref := range refs {
		v, ok := s.materialize(ref)
		if !ok {
			continue
		}
		key := script.RootKey(ref)
		out[key] = merge(out[key], v)
	}
	return out, nil
}

func (s *Scope) materialize(ref *nodeid.Address) (any, bool) {
	switch ref.Anchor {
	case nodeid.AnchorSelf:
		return s.node(s.self, ref.Path)
	case nodeid.AnchorForm:
		return s.node(s.doc.Root, ref.Path)
	case nodeid.AnchorData:
		return s.data(s.doc.Data.Root(), ref.Path)
	}
	if len(ref.Path) == 0 {
		return nil, false
	}
	parent := s.doc.searchUp(s.self, ref.Path[0].Name)
	if parent == formtree.None {
		return nil, false
	}
	return s.run(parent, ref.Path[0], ref.Path[1:])
}

// node materializes id with rest still to walk below it.
func (s *Scope) node(id formtree.NodeID, rest []nodeid.PathSegment) (any, bool) {
	n := s.doc.Form.Node(id)
	if n == nil {
		return nil, false
	}
	if n.Element.HoldsValue() {
		return s.leaf(id), true
	}
	if len(rest) == 0 {
		return s.full(id), true
	}
	v, ok := s.run(id, rest[0], rest[1:])
	if !ok {
		return nil, false
	}
	return map[string]any{rest[0].Name: v}, true
}

// run materializes the children of parent named by seg.
func (s *Scope) run(parent formtree.NodeID, seg nodeid.PathSegment, rest []nodeid.PathSegment) (any, bool) {
	var matches []formtree.NodeID
	for _, c := range s.doc.Form.Children(parent) {
		cn := s.doc.Form.Node(c)
		if cn.Name == seg.Name && cn.Element != formtree.ElementInstanceManager {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}

	if !repeatable(s.doc.Form.Node(matches[0])) {
		idx := seg.Occurrence()
		if idx >= len(matches) {
			return nil, false
		}
		return s.node(matches[idx], rest)
	}

	if seg.HasIndex() && seg.Index >= len(matches) {
		return nil, false
	}
	list := make([]any, len(matches))
	for i, m := range matches {
		list[i] = map[string]any{}
		if seg.HasIndex() && i != seg.Index {
			continue
		}
		if v, ok := s.node(m, rest); ok {
			list[i] = v
		}
	}
	return list, true
}

// full materializes the whole subtree of a container. Unnamed containers are
// transparent: their children appear in the enclosing object.
func (s *Scope) full(id formtree.NodeID) map[string]any {
	out := map[string]any{}
	s.fill(out, id)
	return out
}

func (s *Scope) fill(out map[string]any, id formtree.NodeID) {
	for _, c := range s.doc.Form.Children(id) {
		cn := s.doc.Form.Node(c)
		switch {
		case cn.Element == formtree.ElementInstanceManager:
			continue
		case cn.Name == "":
			if !cn.Element.HoldsValue() {
				s.fill(out, c)
			}
			continue
		}
		var v any
		if cn.Element.HoldsValue() {
			v = s.leaf(c)
		} else {
			v = s.full(c)
		}
		if repeatable(cn) {
			list, _ := out[cn.Name].([]any)
			out[cn.Name] = append(list, v)
			continue
		}
		if _, dup := out[cn.Name]; !dup {
			out[cn.Name] = v
		}
	}
}

// leaf reads the value of a value-holding node and records the read.
func (s *Scope) leaf(id formtree.NodeID) script.Value {
	n := s.doc.Form.Node(id)
	for _, data := range s.doc.Bind.AllBound(id) {
		s.record(data)
	}
	switch n.UI {
	case formtree.UITextEdit, formtree.UIPasswordEdit:
		if n.Value == "" {
			return script.Null()
		}
		return script.Text(n.Value)
	}
	return script.FromRaw(n.Value)
}

// data materializes a data node path. Same-named data siblings become a list
// when there is more than one of them.
func (s *Scope) data(id databind.DataID, rest []nodeid.PathSegment) (any, bool) {
	dt := s.doc.Data
	n := dt.Node(id)
	if n == nil {
		return nil, false
	}
	if n.Kind == databind.KindValue {
		s.record(id)
		return script.FromRaw(n.Value), true
	}
	if len(rest) == 0 {
		out := map[string]any{}
		for _, c := range dt.Children(id) {
			name := dt.Node(c).Name
			v, _ := s.data(c, nil)
			if prev, ok := out[name]; ok {
				list, isList := prev.([]any)
				if !isList {
					list = []any{prev}
				}
				out[name] = append(list, v)
				continue
			}
			out[name] = v
		}
		return out, true
	}

	seg := rest[0]
	var matches []databind.DataID
	for _, c := range dt.Children(id) {
		if dt.Node(c).Name == seg.Name {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 || (seg.HasIndex() && seg.Index >= len(matches)) {
		return nil, false
	}
	var v any
	if len(matches) == 1 && !seg.All() {
		var ok bool
		if v, ok = s.data(matches[0], rest[1:]); !ok {
			return nil, false
		}
	} else {
		list := make([]any, len(matches))
		for i, m := range matches {
			list[i] = map[string]any{}
			if seg.HasIndex() && i != seg.Index {
				continue
			}
			if mv, ok := s.data(m, rest[1:]); ok {
				list[i] = mv
			}
		}
		v = list
	}
	return map[string]any{seg.Name: v}, true
}

func (s *Scope) record(data databind.DataID) {
	if !s.seen[data] {
		s.seen[data] = true
		s.reads = append(s.reads, data)
	}
}

// merge combines two materialized values. Objects merge by key and lists
// merge element-wise; otherwise src wins.
func merge(dst, src any) any {
	switch d := dst.(type) {
	case nil:
		return src
	case map[string]any:
		sm, ok := src.(map[string]any)
		if !ok {
			return src
		}
		for k, v := range sm {
			d[k] = merge(d[k], v)
		}
		return d
	case []any:
		sl, ok := src.([]any)
		if !ok {
			return src
		}
		for i, v := range sl {
			if i < len(d) {
				d[i] = merge(d[i], v)
			} else {
				d = append(d, v)
			}
		}
		return d
	}
	return src
}
