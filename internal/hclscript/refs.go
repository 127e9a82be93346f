package hclscript

import (
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/formrun/internal/nodeid"
	"github.com/vk/formrun/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// TraversalKey renders a traversal in its canonical source form, e.g.
// `items[0].price`.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// References returns the unique form references made by expr, sorted by
// their canonical form. A traversal is cut at the first step that cannot be
// expressed as a reference segment.
func References(expr hcl.Expression) []*nodeid.Address {
	byKey := make(map[string]*nodeid.Address)
	for _, t := range expr.Variables() {
		addr := traversalAddress(t)
		byKey[addr.String()] = addr
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*nodeid.Address, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

func traversalAddress(t hcl.Traversal) *nodeid.Address {
	addr := script.NewAddress(t.RootName())
	for _, step := range t[1:] {
		switch s := step.(type) {
		case hcl.TraverseAttr:
			addr.Path = append(addr.Path, nodeid.NewPathSegment(s.Name))
		case hcl.TraverseIndex:
			idx, ok := indexKey(s.Key)
			if !ok || len(addr.Path) == 0 || addr.Path[len(addr.Path)-1].Index != nodeid.NoIndex {
				return addr
			}
			addr.Path[len(addr.Path)-1].Index = idx
		default:
			return addr
		}
	}
	return addr
}

func indexKey(v cty.Value) (int, bool) {
	if !v.IsKnown() || v.IsNull() || v.Type() != cty.Number {
		return 0, false
	}
	i, acc := v.AsBigFloat().Int64()
	if acc != big.Exact || i < 0 {
		return 0, false
	}
	return int(i), true
}
