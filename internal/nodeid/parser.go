package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segmentRegex parses a single segment, e.g. `name`, `name[1]` or `name[*]`.
var segmentRegex = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*)(?:\[(\d+|\*)\])?$`)

// Parse builds an Address from its reference string.
func Parse(rawID string) (*Address, error) {
	if rawID == "" {
		return nil, fmt.Errorf("reference cannot be empty")
	}

	addr := &Address{}
	parts := strings.Split(rawID, ".")
	if a, ok := anchorNames[parts[0]]; ok {
		addr.Anchor = a
		parts = parts[1:]
	}
	for _, segmentStr := range parts {
		if segmentStr == "" {
			return nil, fmt.Errorf("reference %q contains an empty segment", rawID)
		}

		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, fmt.Errorf("invalid reference segment %q", segmentStr)
		}

		segment := NewPathSegment(matches[1])
		switch idx := matches[2]; idx {
		case "":
		case "*":
			segment.Index = AllIndex
		default:
			n, err := strconv.Atoi(idx)
			if err != nil {
				return nil, fmt.Errorf("reference segment %q: %w", segmentStr, err)
			}
			segment.Index = n
		}
		addr.Path = append(addr.Path, segment)
	}

	return addr, nil
}

// MustParse is Parse for references known at compile time.
func MustParse(rawID string) *Address {
	a, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return a
}
