package command

import (
	"errors"
	"fmt"

	"github.com/google/shlex"
)

// ErrUnterminatedQuote is returned by Split for a quote or escape left open.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Split breaks line into words with shell quoting rules. A # starting a
// word comments out the rest of the line.
func Split(line string) ([]string, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnterminatedQuote, err)
	}
	return words, nil
}
