package nodeid

import (
	"slices"
	"strconv"
	"strings"
)

// String serializes the Address into its canonical reference form.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	switch a.Anchor {
	case AnchorSelf:
		sb.WriteString("$")
	case AnchorForm:
		sb.WriteString("$form")
	case AnchorData:
		sb.WriteString("$data")
	}
	for i, segment := range a.Path {
		if i > 0 || a.Anchor != AnchorScope {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		switch {
		case segment.All():
			sb.WriteString("[*]")
		case segment.HasIndex():
			sb.WriteString("[" + strconv.Itoa(segment.Index) + "]")
		}
	}

	return sb.String()
}

// Equal checks two addresses for equality.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.Anchor == other.Anchor && slices.Equal(a.Path, other.Path)
}

// Child returns a copy of a extended by one segment.
func (a *Address) Child(seg PathSegment) *Address {
	out := &Address{Anchor: a.Anchor, Path: make([]PathSegment, 0, len(a.Path)+1)}
	out.Path = append(out.Path, a.Path...)
	out.Path = append(out.Path, seg)
	return out
}
