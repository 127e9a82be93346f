package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		rawID        string
		expectErr    bool
		expectedAddr *Address
	}{
		{
			name:  "simple path",
			rawID: "order.total",
			expectedAddr: &Address{
				Path: []PathSegment{NewPathSegment("order"), NewPathSegment("total")},
			},
		},
		{
			name:  "indexed segments",
			rawID: "items[1].price",
			expectedAddr: &Address{
				Path: []PathSegment{NewPathSegmentWithIndex("items", 1), NewPathSegment("price")},
			},
		},
		{
			name:  "all occurrences",
			rawID: "items[*].price",
			expectedAddr: &Address{
				Path: []PathSegment{NewPathSegmentWithIndex("items", AllIndex), NewPathSegment("price")},
			},
		},
		{
			name:  "self anchor",
			rawID: "$.qty",
			expectedAddr: &Address{
				Anchor: AnchorSelf,
				Path:   []PathSegment{NewPathSegment("qty")},
			},
		},
		{
			name:         "bare form anchor",
			rawID:        "$form",
			expectedAddr: &Address{Anchor: AnchorForm},
		},
		{
			name:  "data anchor",
			rawID: "$data.customer.name",
			expectedAddr: &Address{
				Anchor: AnchorData,
				Path:   []PathSegment{NewPathSegment("customer"), NewPathSegment("name")},
			},
		},
		{name: "error - empty segment", rawID: "a..b", expectErr: true},
		{name: "error - bad index", rawID: "a.b[x]", expectErr: true},
		{name: "error - empty string", rawID: "", expectErr: true},
		{name: "error - leading digit", rawID: "1item", expectErr: true},
		{name: "error - anchor in the middle", rawID: "a.$form", expectErr: true},
		{name: "error - just a dot", rawID: ".", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			addr, err := Parse(tc.rawID)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, addr)
			assert.True(t, tc.expectedAddr.Equal(addr), "parsed %v, want %v", addr, tc.expectedAddr)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a[") })
}
