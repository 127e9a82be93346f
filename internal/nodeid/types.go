package nodeid

const (
	// NoIndex marks a segment written without brackets.
	NoIndex = -1
	// AllIndex marks a segment written as name[*].
	AllIndex = -2
)

// Anchor names where a reference starts resolving.
type Anchor uint8

const (
	AnchorScope Anchor = iota
	AnchorSelf
	AnchorForm
	AnchorData
)

var anchorNames = map[string]Anchor{
	"$":     AnchorSelf,
	"$form": AnchorForm,
	"$data": AnchorData,
}

// PathSegment is one component of a reference, e.g. `name[index]`.
type PathSegment struct {
	Name  string
	Index int
}

// NewPathSegment creates a segment without an index.
func NewPathSegment(name string) PathSegment {
	return PathSegment{Name: name, Index: NoIndex}
}

// NewPathSegmentWithIndex creates a segment with an explicit index.
func NewPathSegmentWithIndex(name string, index int) PathSegment {
	return PathSegment{Name: name, Index: index}
}

// HasIndex reports whether the segment names a single explicit occurrence.
func (ps PathSegment) HasIndex() bool {
	return ps.Index >= 0
}

// All reports whether the segment was written as name[*].
func (ps PathSegment) All() bool {
	return ps.Index == AllIndex
}

// Occurrence returns the index to use when the segment names one node.
func (ps PathSegment) Occurrence() int {
	if ps.Index < 0 {
		return 0
	}
	return ps.Index
}

// Address is a parsed reference. Path excludes the anchor segment.
type Address struct {
	Anchor Anchor
	Path   []PathSegment
}

// Multi reports whether any segment selects all occurrences.
func (a *Address) Multi() bool {
	if a == nil {
		return false
	}
	for _, s := range a.Path {
		if s.All() {
			return true
		}
	}
	return false
}
