package instancemgr

import (
	"context"
	"fmt"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/host"
)

// Cloner creates a detached instance of a repeatable subform template.
type Cloner interface {
	CloneInstance(ctx context.Context, template formtree.NodeID, dataScope databind.DataID, bind bool) (formtree.NodeID, error)
}

// Initializer runs the initialize activity over a freshly inserted subtree.
type Initializer interface {
	RunNodeInitialize(ctx context.Context, node formtree.NodeID)
}

// IndexChanger is told when an instance's position in its run changed.
type IndexChanger interface {
	RunSubformIndexChange(ctx context.Context, node formtree.NodeID)
}

// Manager performs instance operations on a document.
type Manager struct {
	doc    *formdoc.Document
	cloner Cloner
	init   Initializer
	index  IndexChanger
	layout host.LayoutSink
}

// Option configures a Manager.
type Option func(*Manager)

// WithCloner overrides the cloner. The default is formdoc.Cloner.
func WithCloner(c Cloner) Option {
	return func(m *Manager) { m.cloner = c }
}

// WithInitializer sets the hook run on every new instance.
func WithInitializer(i Initializer) Option {
	return func(m *Manager) { m.init = i }
}

// WithIndexChanger sets the hook run on instances whose index changed.
func WithIndexChanger(ic IndexChanger) Option {
	return func(m *Manager) { m.index = ic }
}

// WithLayout sets the sink that receives layout signals.
func WithLayout(s host.LayoutSink) Option {
	return func(m *Manager) { m.layout = s }
}

// New returns a Manager for doc.
func New(doc *formdoc.Document, opts ...Option) *Manager {
	m := &Manager{doc: doc, cloner: formdoc.Cloner{Doc: doc}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Count returns the number of instances in the run owned by im.
func (m *Manager) Count(im formtree.NodeID) int {
	return len(m.items(im))
}

// Item returns the instance at index, or None.
func (m *Manager) Item(im formtree.NodeID, index int) formtree.NodeID {
	items := m.items(im)
	if index < 0 || index >= len(items) {
		return formtree.None
	}
	return items[index]
}

// Items returns the instances of the run in order.
func (m *Manager) Items(im formtree.NodeID) []formtree.NodeID {
	return m.items(im)
}

// Occur returns the occurrence bounds of the run.
func (m *Manager) Occur(im formtree.NodeID) formtree.Occur {
	n := m.doc.Form.Node(im)
	if n == nil {
		return formtree.DefaultOccur()
	}
	if n.Occur != nil {
		return *n.Occur
	}
	if tn := m.doc.Form.Node(n.Template); tn != nil && tn.Occur != nil {
		return *tn.Occur
	}
	return formtree.DefaultOccur()
}

func (m *Manager) items(im formtree.NodeID) []formtree.NodeID {
	mn := m.doc.Form.Node(im)
	if mn == nil || mn.Element != formtree.ElementInstanceManager {
		return nil
	}
	var (
		out  []formtree.NodeID
		hash uint32
	)
	for cur := m.doc.Form.NextSibling(im); cur != formtree.None; cur = m.doc.Form.NextSibling(cur) {
		n := m.doc.Form.Node(cur)
		if n.Element == formtree.ElementInstanceManager {
			break
		}
		if !n.Element.IsRepeatable() {
			continue
		}
		if len(out) == 0 {
			if len(mn.Name) < 1 || mn.Name[0] != '_' || mn.Name[1:] != n.Name {
				return nil
			}
			hash = n.NameHash
		}
		if n.NameHash != hash {
			break
		}
		out = append(out, cur)
	}
	return out
}

// SetInstances grows or shrinks the run to exactly count instances. New
// instances are bound to fresh data and initialized; removed instances
// release their data.
func (m *Manager) SetInstances(ctx context.Context, im formtree.NodeID, count int) error {
	occ := m.Occur(im)
	if count < occ.Min {
		return m.occurErr(im, BoundMin, occ.Min)
	}
	if occ.Max >= 0 && count > occ.Max {
		return m.occurErr(im, BoundMax, occ.Max)
	}
	cur := m.Count(im)
	if cur == count {
		return nil
	}

	if count < cur {
		prev := im
		if count > 0 {
			prev = m.Item(im, count-1)
		}
		hash := formtree.Hash(m.runName(im))
		for n := m.doc.Form.NextSibling(prev); n != formtree.None && cur > count; {
			next := m.doc.Form.NextSibling(n)
			node := m.doc.Form.Node(n)
			if node.Element == formtree.ElementInstanceManager {
				break
			}
			if node.Element.IsRepeatable() && node.NameHash == hash {
				m.removeItem(n, true)
				cur--
			}
			n = next
		}
	} else {
		for ; cur < count; cur++ {
			inst, err := m.create(ctx, im, true)
			if err != nil {
				return err
			}
			if err := m.insertItem(ctx, im, inst, cur, cur, false); err != nil {
				return err
			}
			m.initialize(ctx, inst)
		}
	}

	ctxlog.FromContext(ctx).Debug("Set instances.", "manager", m.runName(im), "count", count)
	m.changed(ctx)
	return nil
}

// AddInstance appends a new instance to the run and returns it. Without
// bind the instance holds its values on the form only.
func (m *Manager) AddInstance(ctx context.Context, im formtree.NodeID, bind bool) (formtree.NodeID, error) {
	count := m.Count(im)
	occ := m.Occur(im)
	if occ.Max >= 0 && count >= occ.Max {
		return formtree.None, m.occurErr(im, BoundMax, occ.Max)
	}
	inst, err := m.create(ctx, im, bind)
	if err != nil {
		return formtree.None, err
	}
	if err := m.insertItem(ctx, im, inst, count, count, false); err != nil {
		return formtree.None, err
	}
	m.initialize(ctx, inst)

	ctxlog.FromContext(ctx).Debug("Added instance.", "manager", m.runName(im), "count", count+1)
	m.changed(ctx)
	return inst, nil
}

// InsertInstance inserts a new instance at index, 0 <= index <= Count, and
// moves its data next to the data of its neighbour.
func (m *Manager) InsertInstance(ctx context.Context, im formtree.NodeID, index int, bind bool) (formtree.NodeID, error) {
	count := m.Count(im)
	if index < 0 || index > count {
		return formtree.None, fmt.Errorf("insert %q at %d of %d: %w", m.runName(im), index, count, ErrIndexOutOfBounds)
	}
	occ := m.Occur(im)
	if occ.Max >= 0 && count >= occ.Max {
		return formtree.None, m.occurErr(im, BoundMax, occ.Max)
	}
	inst, err := m.create(ctx, im, bind)
	if err != nil {
		return formtree.None, err
	}
	if err := m.insertItem(ctx, im, inst, index, count, true); err != nil {
		return formtree.None, err
	}
	m.initialize(ctx, inst)

	ctxlog.FromContext(ctx).Debug("Inserted instance.", "manager", m.runName(im), "index", index)
	m.changed(ctx)
	return inst, nil
}

// RemoveInstance removes the instance at index and releases its data. The
// instances that moved up get an index change.
func (m *Manager) RemoveInstance(ctx context.Context, im formtree.NodeID, index int) error {
	count := m.Count(im)
	if index < 0 || index >= count {
		return fmt.Errorf("remove %q at %d of %d: %w", m.runName(im), index, count, ErrIndexOutOfBounds)
	}
	occ := m.Occur(im)
	if count-1 < occ.Min {
		return m.occurErr(im, BoundMin, occ.Min)
	}
	m.removeItem(m.Item(im, index), true)
	for i := index; i < count-1; i++ {
		m.indexChanged(ctx, m.Item(im, i))
	}

	ctxlog.FromContext(ctx).Debug("Removed instance.", "manager", m.runName(im), "index", index)
	m.changed(ctx)
	return nil
}

// MoveInstance moves the instance at from to position to. Its data keeps
// its binding and is reordered with it.
func (m *Manager) MoveInstance(ctx context.Context, im formtree.NodeID, from, to int) error {
	count := m.Count(im)
	if from < 0 || from >= count || to < 0 || to >= count {
		return fmt.Errorf("move %q from %d to %d of %d: %w", m.runName(im), from, to, count, ErrIndexOutOfBounds)
	}
	if from == to {
		return nil
	}
	inst := m.Item(im, from)
	m.removeItem(inst, false)
	if err := m.insertItem(ctx, im, inst, to, count-1, true); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("Moved instance.", "manager", m.runName(im), "from", from, "to", to)
	m.changed(ctx)
	m.indexChanged(ctx, m.Item(im, to))
	m.indexChanged(ctx, m.Item(im, from))
	return nil
}

// create clones the run's template under the data scope of the manager's
// parent.
func (m *Manager) create(ctx context.Context, im formtree.NodeID, bind bool) (formtree.NodeID, error) {
	tmpl := m.doc.Form.Node(im).Template
	if m.doc.Form.Node(tmpl) == nil {
		return formtree.None, fmt.Errorf("instance manager %q has no template: %w", m.runName(im), formtree.ErrNoSuchNode)
	}
	scope := m.doc.DataScope(m.doc.Form.Parent(im))
	return m.cloner.CloneInstance(ctx, tmpl, scope, bind)
}

// insertItem places inst at pos in a run of count instances. With reorder
// the data of inst is moved to match its new form position.
func (m *Manager) insertItem(ctx context.Context, im, inst formtree.NodeID, pos, count int, reorder bool) error {
	parent := m.doc.Form.Parent(im)
	if pos == count {
		last := im
		if count > 0 {
			last = m.Item(im, count-1)
		}
		if err := m.doc.Form.InsertAfter(parent, inst, last); err != nil {
			return fmt.Errorf("insert instance: %w", err)
		}
		if reorder && count > 0 {
			m.ReorderDataNodes(ctx, m.boundData(inst), m.boundData(last), false)
		}
		return nil
	}

	before := m.Item(im, pos)
	if err := m.doc.Form.InsertBefore(parent, inst, before); err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	if reorder {
		m.ReorderDataNodes(ctx, m.boundData(inst), m.boundData(before), true)
	}
	return nil
}

// removeItem detaches inst. With release every data node left without bind
// items is removed from the data tree.
func (m *Manager) removeItem(inst formtree.NodeID, release bool) {
	m.doc.Form.Detach(inst)
	if !release {
		return
	}
	m.doc.Form.Walk(inst, func(id formtree.NodeID) bool {
		for _, orphan := range m.doc.Bind.Unbind(id) {
			m.doc.Data.Detach(orphan)
		}
		return true
	})
}

// boundData collects the data bound anywhere in the subtree of root.
func (m *Manager) boundData(root formtree.NodeID) []databind.DataID {
	var out []databind.DataID
	m.doc.Form.Walk(root, func(id formtree.NodeID) bool {
		out = append(out, m.doc.Bind.AllBound(id)...)
		return true
	})
	return out
}

func (m *Manager) initialize(ctx context.Context, inst formtree.NodeID) {
	if m.init != nil {
		m.init.RunNodeInitialize(ctx, inst)
	}
}

func (m *Manager) indexChanged(ctx context.Context, inst formtree.NodeID) {
	n := m.doc.Form.Node(inst)
	if m.index == nil || n == nil || n.Element != formtree.ElementSubform {
		return
	}
	m.index.RunSubformIndexChange(ctx, inst)
}

func (m *Manager) changed(ctx context.Context) {
	if m.layout != nil {
		m.layout.ContainerChanged(ctx, m.doc.Root, m.doc.Form.Path(m.doc.Root))
	}
}

// runName is the name of the run's instances: the manager name without its
// leading underscore.
func (m *Manager) runName(im formtree.NodeID) string {
	n := m.doc.Form.Node(im)
	if n == nil || len(n.Name) == 0 {
		return ""
	}
	if n.Name[0] == '_' {
		return n.Name[1:]
	}
	return n.Name
}

func (m *Manager) occurErr(im formtree.NodeID, b Bound, limit int) error {
	return &OccurrenceError{Name: m.runName(im), Bound: b, Limit: limit}
}
