// Package host declares what the form runtime needs from its embedding
// application: a message-box policy and a sink for layout signals.
package host

import (
	"context"

	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formtree"
)

// Severity is the icon class of a message box.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityStatus
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "status"
}

// Buttons selects the buttons of a message box.
type Buttons uint8

const (
	ButtonsOK Buttons = iota
	ButtonsYesNo
)

// Choice is the button the user pressed.
type Choice uint8

const (
	ChoiceOK Choice = iota
	ChoiceYes
	ChoiceNo
)

func (c Choice) String() string {
	switch c {
	case ChoiceYes:
		return "yes"
	case ChoiceNo:
		return "no"
	}
	return "ok"
}

// Message is a modal message box request.
type Message struct {
	Title    string
	Text     string
	Severity Severity
	Buttons  Buttons
}

// Policy answers the runtime's questions about what the host allows and
// shows message boxes on its behalf.
type Policy interface {
	CalculationsEnabled() bool
	ValidationsEnabled() bool
	ShowMessage(ctx context.Context, msg Message) Choice
}

// LayoutSink receives layout-invalidation signals.
type LayoutSink interface {
	// ContainerChanged reports that the children of a form container changed.
	ContainerChanged(ctx context.Context, node formtree.NodeID, path string)
	// DataReordered reports that children of a data group were relocated.
	DataReordered(ctx context.Context, parent databind.DataID, path string)
}
