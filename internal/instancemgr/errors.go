package instancemgr

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyOccurrences is matched by every OccurrenceError.
	ErrTooManyOccurrences = errors.New("too many occurrences")
	// ErrIndexOutOfBounds is returned for instance indices outside the run.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// Bound names the occurrence limit an operation would break.
type Bound uint8

const (
	BoundMin Bound = iota
	BoundMax
)

func (b Bound) String() string {
	if b == BoundMin {
		return "min"
	}
	return "max"
}

// OccurrenceError reports an operation that would leave a run outside its
// occurrence bounds.
type OccurrenceError struct {
	Name  string
	Bound Bound
	Limit int
}

func (e *OccurrenceError) Error() string {
	return fmt.Sprintf("too many occurrences of %q: %s is %d", e.Name, e.Bound, e.Limit)
}

// Is makes errors.Is(err, ErrTooManyOccurrences) match.
func (e *OccurrenceError) Is(target error) bool {
	return target == ErrTooManyOccurrences
}
