package formdoc

import (
	"context"
	"fmt"

	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formtree"
)

// bindMode says how an instantiated container finds its data.
type bindMode uint8

const (
	// bindMatch binds to the nth same-named data child, creating it when
	// missing.
	bindMatch bindMode = iota
	// bindFresh always creates a new data node.
	bindFresh
)

// Merge instantiates the template rooted at tmpl against data. The live form
// root is added to the same tree.
func Merge(ctx context.Context, tree *formtree.Tree, tmpl formtree.NodeID, data *databind.Tree) (*Document, error) {
	root := tree.Node(tmpl)
	if root == nil || root.Element != formtree.ElementForm {
		return nil, fmt.Errorf("merge: template %d is not a form root", tmpl)
	}
	d := &Document{
		Form:     tree,
		Data:     data,
		Bind:     databind.NewIndex(),
		Template: tmpl,
	}

	id, err := tree.CloneNode(tmpl)
	if err != nil {
		return nil, err
	}
	d.Root = id
	d.Bind.Bind(id, data.Root())
	if err := d.mergeChildren(tmpl, id, data.Root()); err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Debug("Merged form with data.",
		"form_nodes", tree.Len(), "root", root.Name)
	return d, nil
}

// mergeChildren instantiates the children of tmpl under form. Repeatable
// subforms get an instance manager and one instance per matching data group,
// bounded by their occurrence limits.
func (d *Document) mergeChildren(tmpl, form formtree.NodeID, scope databind.DataID) error {
	for _, tc := range d.Form.Children(tmpl) {
		tn := d.Form.Node(tc)
		if !repeatable(tn) {
			id, err := d.instantiate(tc, scope, d.sameNameIndex(tmpl, tc), bindMatch)
			if err != nil {
				return err
			}
			if err := d.Form.AppendChild(form, id); err != nil {
				return err
			}
			continue
		}

		im := d.Form.Add(formtree.Node{Element: formtree.ElementInstanceManager, Name: "_" + tn.Name})
		d.Form.Node(im).Template = tc
		if err := d.Form.AppendChild(form, im); err != nil {
			return err
		}
		for i := range initialCount(tn, d.dataCount(scope, tn.Name)) {
			id, err := d.instantiate(tc, scope, i, bindMatch)
			if err != nil {
				return err
			}
			if err := d.Form.AppendChild(form, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// instantiate clones tmpl into a detached subtree bound under scope. A None
// scope leaves the subtree unbound.
func (d *Document) instantiate(tmpl formtree.NodeID, scope databind.DataID, nth int, mode bindMode) (formtree.NodeID, error) {
	id, err := d.Form.CloneNode(tmpl)
	if err != nil {
		return formtree.None, err
	}
	n := d.Form.Node(id)
	childScope := scope

	if scope != databind.None && n.Bind != formtree.BindNone && n.Name != "" {
		switch {
		case n.Element.HoldsValue() && n.Element != formtree.ElementDraw:
			data, err := d.dataFor(scope, n.Name, nth, databind.KindValue, n.Value, mode)
			if err != nil {
				return formtree.None, err
			}
			if mode == bindMatch {
				n.Value = d.Data.Node(data).Value
			}
			d.Bind.Bind(id, data)
		case n.Element == formtree.ElementSubform || n.Element == formtree.ElementSubformSet:
			data, err := d.dataFor(scope, n.Name, nth, databind.KindGroup, "", mode)
			if err != nil {
				return formtree.None, err
			}
			d.Bind.Bind(id, data)
			childScope = data
		}
	}
	n.IsNull = n.Value == ""
	n.PreNull = false

	if err := d.mergeChildren(tmpl, id, childScope); err != nil {
		return formtree.None, err
	}
	return id, nil
}

// dataFor finds or creates the data node a container binds to.
func (d *Document) dataFor(scope databind.DataID, name string, nth int, kind databind.Kind, value string, mode bindMode) (databind.DataID, error) {
	if mode == bindMatch {
		if data := d.findData(scope, name, nth, kind); data != databind.None {
			return data, nil
		}
	}
	data := d.Data.Add(kind, name, value)
	if err := d.Data.Append(scope, data); err != nil {
		return databind.None, err
	}
	return data, nil
}

func (d *Document) findData(scope databind.DataID, name string, nth int, kind databind.Kind) databind.DataID {
	seen := 0
	for _, c := range d.Data.Children(scope) {
		dn := d.Data.Node(c)
		if dn.Name != name || dn.Kind != kind {
			continue
		}
		if seen == nth {
			return c
		}
		seen++
	}
	return databind.None
}

func (d *Document) dataCount(scope databind.DataID, name string) int {
	n := 0
	for _, c := range d.Data.Children(scope) {
		if dn := d.Data.Node(c); dn.Name == name && dn.Kind == databind.KindGroup {
			n++
		}
	}
	return n
}

// sameNameIndex counts the preceding template siblings sharing tc's name.
func (d *Document) sameNameIndex(tmpl, tc formtree.NodeID) int {
	name := d.Form.Node(tc).Name
	idx := 0
	for _, c := range d.Form.Children(tmpl) {
		if c == tc {
			break
		}
		if d.Form.Node(c).Name == name {
			idx++
		}
	}
	return idx
}

func repeatable(n *formtree.Node) bool {
	return n.Occur != nil && n.Element.IsRepeatable()
}

// initialCount is the number of instances to create for a run: the larger
// of the data count and the initial count, clamped to the bounds.
func initialCount(n *formtree.Node, dataCount int) int {
	count := max(dataCount, n.Occur.Initial)
	if count < n.Occur.Min {
		count = n.Occur.Min
	}
	if n.Occur.Max >= 0 && count > n.Occur.Max {
		count = n.Occur.Max
	}
	return count
}

// Cloner creates new instances of repeatable subforms for the instance
// manager.
type Cloner struct {
	Doc *Document
}

// CloneInstance returns a detached instance of template. With bind set the
// instance gets a new data group appended to dataScope.
func (c Cloner) CloneInstance(ctx context.Context, template formtree.NodeID, dataScope databind.DataID, bind bool) (formtree.NodeID, error) {
	if !bind {
		dataScope = databind.None
	}
	id, err := c.Doc.instantiate(template, dataScope, 0, bindFresh)
	if err != nil {
		return formtree.None, fmt.Errorf("clone instance of %q: %w", c.Doc.Form.Node(template).Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Cloned instance.", "template", c.Doc.Form.Node(template).Name, "node", id, "bound", bind)
	return id, nil
}
