package databind

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeYAML reads a data packet. Mappings become groups, scalars become
// value nodes and sequences become runs of same-named siblings.
func DecodeYAML(r io.Reader, rootName string) (*Tree, error) {
	t := NewTree(rootName)
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		return nil, fmt.Errorf("decode data packet: %w", err)
	}
	if len(doc.Content) == 0 {
		return t, nil
	}
	top := doc.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("data packet line %d: top level must be a mapping", top.Line)
	}
	if err := t.decodeMapping(t.root, top); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) decodeMapping(parent DataID, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if val.Kind == yaml.SequenceNode {
			for _, item := range val.Content {
				if err := t.decodeEntry(parent, key.Value, item); err != nil {
					return err
				}
			}
			continue
		}
		if err := t.decodeEntry(parent, key.Value, val); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) decodeEntry(parent DataID, name string, n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		value := n.Value
		if n.Tag == "!!null" {
			value = ""
		}
		return t.Append(parent, t.Add(KindValue, name, value))
	case yaml.MappingNode:
		g := t.Add(KindGroup, name, "")
		if err := t.Append(parent, g); err != nil {
			return err
		}
		return t.decodeMapping(g, n)
	case yaml.AliasNode:
		return t.decodeEntry(parent, name, n.Alias)
	default:
		return fmt.Errorf("data packet line %d: unsupported value for %q", n.Line, name)
	}
}

// EncodeYAML writes the tree below the root as a data packet. Same-named
// siblings are emitted as one sequence at the position of the first of them.
func (t *Tree) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t.encodeGroup(t.root)); err != nil {
		return fmt.Errorf("encode data packet: %w", err)
	}
	return enc.Close()
}

func (t *Tree) encodeGroup(id DataID) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	runs := map[string]*yaml.Node{}
	counts := map[string]int{}
	for _, c := range t.Children(id) {
		counts[t.nodes[c].Name]++
	}
	for _, c := range t.Children(id) {
		n := t.nodes[c]
		val := t.encodeNode(c)
		if counts[n.Name] == 1 {
			m.Content = append(m.Content, scalar(n.Name), val)
			continue
		}
		seq, ok := runs[n.Name]
		if !ok {
			seq = &yaml.Node{Kind: yaml.SequenceNode}
			runs[n.Name] = seq
			m.Content = append(m.Content, scalar(n.Name), seq)
		}
		seq.Content = append(seq.Content, val)
	}
	return m
}

func (t *Tree) encodeNode(id DataID) *yaml.Node {
	n := t.nodes[id]
	if n.Kind == KindGroup {
		return t.encodeGroup(id)
	}
	return scalar(n.Value)
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
