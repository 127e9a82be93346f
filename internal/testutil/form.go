package testutil

import (
	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/formtree"
)

// Template builds template trees for tests.
type Template struct {
	Tree *formtree.Tree
	Root formtree.NodeID
}

// NewTemplate starts a template whose root form is named name.
func NewTemplate(name string) *Template {
	tr := formtree.New()
	return &Template{Tree: tr, Root: tr.Add(formtree.Node{Element: formtree.ElementForm, Name: name})}
}

// Add attaches n under parent and returns its ID.
func (b *Template) Add(parent formtree.NodeID, n formtree.Node) formtree.NodeID {
	id := b.Tree.Add(n)
	if err := b.Tree.AppendChild(parent, id); err != nil {
		panic(err)
	}
	return id
}

// Subform adds a subform. A nil occur makes it non-repeating.
func (b *Template) Subform(parent formtree.NodeID, name string, occur *formtree.Occur) formtree.NodeID {
	return b.Add(parent, formtree.Node{Element: formtree.ElementSubform, Name: name, Occur: occur})
}

// Field adds a field with a default value.
func (b *Template) Field(parent formtree.NodeID, name, value string) formtree.NodeID {
	return b.Add(parent, formtree.Node{Element: formtree.ElementField, Name: name, Value: value})
}

// Calc sets the calculate script of id.
func (b *Template) Calc(id formtree.NodeID, language, src string) {
	b.Tree.Node(id).Calculate = &formtree.Calculate{Script: formtree.Script{Language: language, Source: src}}
}

// Validate sets the validate descriptor of id and returns it for tweaking.
func (b *Template) Validate(id formtree.NodeID) *formtree.Validate {
	v := formtree.NewValidate()
	b.Tree.Node(id).Validate = v
	return v
}

// Event attaches an event handler to id.
func (b *Template) Event(id formtree.NodeID, a activity.Activity, language, src string) {
	n := b.Tree.Node(id)
	n.Events = append(n.Events, formtree.Event{Activity: a, Script: formtree.Script{Language: language, Source: src}})
}

// Occur returns an occurrence descriptor.
func Occur(minCount, maxCount, initial int) *formtree.Occur {
	return &formtree.Occur{Min: minCount, Max: maxCount, Initial: initial}
}
