package docview

import (
	"math"
	"strings"

	"github.com/vk/formrun/internal/formtree"
)

// DefaultLineHeight is the line height of fields that declare none.
const DefaultLineHeight = 12.0

// split records the lines and height a block of a field took.
type split struct {
	lines  int
	height float64
}

// FindSplitPoint reports where the content of node breaks when block number
// block gets height units of space. It returns the height the block uses and
// whether the content continues in a following block. Text fields break
// between lines; other fields always report 0 and move to the next block
// whole.
func (v *View) FindSplitPoint(node formtree.NodeID, block int, height float64) (float64, bool) {
	n := v.doc.Form.Node(node)
	if n == nil || n.Element == formtree.ElementSubform || n.Element == formtree.ElementSubformSet {
		return height, false
	}
	if !n.UI.IsTextual() {
		return 0, true
	}

	lineHeight := n.LineHeight
	if lineHeight <= 0 {
		lineHeight = DefaultLineHeight
	}
	lines := 1
	if n.Value != "" {
		lines = strings.Count(n.Value, "\n") + 1
	}

	prev := v.splits[node]
	if block < len(prev) {
		prev = prev[:block]
	}
	for _, s := range prev {
		lines -= s.lines
	}
	if lines <= 0 {
		return 0, false
	}

	fit := int(math.Floor(height / lineHeight))
	if fit >= lines {
		v.splits[node] = prev
		return float64(lines) * lineHeight, false
	}
	if fit == 0 {
		return 0, true
	}
	used := float64(fit) * lineHeight
	v.splits[node] = append(prev, split{lines: fit, height: used})
	return used, true
}
