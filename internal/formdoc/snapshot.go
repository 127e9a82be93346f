package formdoc

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/formrun/internal/formtree"
)

// Snapshot is a plain copy of a form subtree for display and export.
type Snapshot struct {
	Name     string     `json:"name"`
	Element  string     `json:"element"`
	Path     string     `json:"path,omitempty"`
	Value    string     `json:"value,omitempty"`
	Count    *int       `json:"count,omitempty"`
	Children []Snapshot `json:"children,omitempty"`
}

// Snapshot copies the subtree rooted at id. countFn reports instance counts
// for instance managers and may be nil.
func (d *Document) Snapshot(id formtree.NodeID, countFn func(formtree.NodeID) int) Snapshot {
	n := d.Form.Node(id)
	s := Snapshot{
		Name:    n.Name,
		Element: n.Element.String(),
		Path:    d.Form.Path(id),
	}
	if n.Element.HoldsValue() {
		s.Value = n.Value
	}
	if n.Element == formtree.ElementInstanceManager && countFn != nil {
		c := countFn(id)
		s.Count = &c
	}
	for _, c := range d.Form.Children(id) {
		s.Children = append(s.Children, d.Snapshot(c, countFn))
	}
	return s
}

// WriteText renders s as an indented outline.
func (s Snapshot) WriteText(w io.Writer) error {
	return s.writeText(w, 0)
}

func (s Snapshot) writeText(w io.Writer, depth int) error {
	line := strings.Repeat("  ", depth) + s.Element
	if s.Name != "" {
		line += " " + s.Name
	}
	if s.Count != nil {
		line += fmt.Sprintf(" (count=%d)", *s.Count)
	}
	if s.Element == formtree.ElementField.String() || s.Element == formtree.ElementExclGroup.String() {
		line += fmt.Sprintf(" = %q", s.Value)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range s.Children {
		if err := c.writeText(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
