package formtree

import (
	"hash/fnv"

	"github.com/vk/formrun/internal/activity"
)

// NodeID is a stable index into a Tree's arena.
type NodeID int32

// None is the null NodeID.
const None NodeID = -1

// Element is the kind of a form node.
type Element uint8

const (
	ElementUnknown Element = iota
	ElementForm
	ElementSubform
	ElementSubformSet
	ElementExclGroup
	ElementField
	ElementDraw
	ElementInstanceManager
	ElementVariables
	ElementArea
)

var elementNames = [...]string{
	ElementUnknown:         "unknown",
	ElementForm:            "form",
	ElementSubform:         "subform",
	ElementSubformSet:      "subformSet",
	ElementExclGroup:       "exclGroup",
	ElementField:           "field",
	ElementDraw:            "draw",
	ElementInstanceManager: "instanceManager",
	ElementVariables:       "variables",
	ElementArea:            "area",
}

func (e Element) String() string {
	if int(e) < len(elementNames) {
		return elementNames[e]
	}
	return elementNames[ElementUnknown]
}

// IsContainer reports whether nodes of this kind take part in deep-first
// activity traversal.
func (e Element) IsContainer() bool {
	switch e {
	case ElementForm, ElementSubform, ElementSubformSet, ElementExclGroup,
		ElementField, ElementDraw, ElementVariables, ElementArea:
		return true
	}
	return false
}

// IsRepeatable reports whether nodes of this kind can form an instance run.
func (e Element) IsRepeatable() bool {
	return e == ElementSubform || e == ElementSubformSet
}

// HoldsValue reports whether nodes of this kind carry a raw value.
func (e Element) HoldsValue() bool {
	return e == ElementField || e == ElementExclGroup || e == ElementDraw
}

// UI is the user-interface kind of a field.
type UI uint8

const (
	UINone UI = iota
	UITextEdit
	UINumericEdit
	UIPasswordEdit
	UICheckButton
	UIChoiceList
	UIListBox
	UISignature
	UIButton
	UIText
)

var uiNames = map[string]UI{
	"":          UINone,
	"text":      UITextEdit,
	"numeric":   UINumericEdit,
	"password":  UIPasswordEdit,
	"check":     UICheckButton,
	"choice":    UIChoiceList,
	"listbox":   UIListBox,
	"signature": UISignature,
	"button":    UIButton,
	"static":    UIText,
}

// ParseUI maps a form-file UI name to its UI kind.
func ParseUI(name string) (UI, bool) {
	ui, ok := uiNames[name]
	return ui, ok
}

// IsTextual reports whether the UI lays its value out as lines of text.
func (u UI) IsTextual() bool {
	switch u {
	case UITextEdit, UINumericEdit, UIPasswordEdit, UIText, UINone:
		return true
	}
	return false
}

// Occur holds the occurrence bounds of a repeatable node. Max < 0 means
// unbounded.
type Occur struct {
	Min     int
	Max     int
	Initial int
}

// DefaultOccur is the descriptor applied when a node declares none.
func DefaultOccur() Occur {
	return Occur{Min: 1, Max: 1, Initial: 1}
}

// Allows reports whether n is within the bounds.
func (o Occur) Allows(n int) bool {
	if n < o.Min {
		return false
	}
	return o.Max < 0 || n <= o.Max
}

// TestPolicy governs how a failed validation test is reported.
type TestPolicy uint8

const (
	TestDisabled TestPolicy = iota
	TestWarning
	TestError
)

// ParseTestPolicy maps "error", "warning" or "disabled" to a policy.
func ParseTestPolicy(s string) (TestPolicy, bool) {
	switch s {
	case "error":
		return TestError, true
	case "warning":
		return TestWarning, true
	case "disabled":
		return TestDisabled, true
	}
	return TestDisabled, false
}

func (p TestPolicy) String() string {
	switch p {
	case TestError:
		return "error"
	case TestWarning:
		return "warning"
	}
	return "disabled"
}

// RunAt says where a script is allowed to execute.
type RunAt uint8

const (
	RunAtClient RunAt = iota
	RunAtServer
	RunAtBoth
)

// Script is an opaque piece of script source in a named language.
type Script struct {
	Language string
	Source   string
	RunAt    RunAt
}

// Empty reports whether the script has no source.
func (s Script) Empty() bool {
	return s.Source == ""
}

// Calculate describes a node's calculation.
type Calculate struct {
	Script Script
}

// Validate describes a node's validation tests.
type Validate struct {
	NullTest   TestPolicy
	FormatTest TestPolicy
	ScriptTest TestPolicy

	Script  Script
	Picture string

	NullMessage   string
	FormatMessage string
	ScriptMessage string

	// NeedsInit is set until the first validation pass on the node.
	NeedsInit bool
}

// NewValidate returns a validate descriptor with the default policies.
func NewValidate() *Validate {
	return &Validate{
		NullTest:   TestDisabled,
		FormatTest: TestWarning,
		ScriptTest: TestError,
		NeedsInit:  true,
	}
}

// Event binds a script to an activity. Ref selects which ready phase a
// Ready handler belongs to ("$form" or "$layout").
type Event struct {
	Activity activity.Activity
	Ref      string
	Script   Script
}

// Bind controls how a container is matched against the data tree.
type Bind uint8

const (
	BindOnce Bind = iota
	BindNone
)

// Node is a form element.
type Node struct {
	Element  Element
	Name     string
	NameHash uint32
	UI       UI

	Occur     *Occur
	Calculate *Calculate
	Validate  *Validate
	Events    []Event
	Bind      Bind

	Caption    string
	Locale     string
	LineHeight float64

	Value   string
	Default string

	// IsNull and PreNull track the current and previous emptiness of the
	// value for the null test.
	IsNull  bool
	PreNull bool

	// UserInteractive is set once the user accepted a validation override.
	UserInteractive bool

	// Template is the template node this node was cloned from.
	Template NodeID

	parent   NodeID
	children []NodeID
}

// SetName updates the name and its hash.
func (n *Node) SetName(name string) {
	n.Name = name
	n.NameHash = Hash(name)
}

// EventsFor returns the node's handlers for a, honoring the ready-phase
// selection for Ready handlers.
func (n *Node) EventsFor(a activity.Activity, isFormReady bool) []Event {
	var out []Event
	for _, ev := range n.Events {
		if ev.Activity != a {
			continue
		}
		if a == activity.Ready {
			ref := ev.Ref
			if ref == "" {
				ref = "$form"
			}
			if isFormReady != (ref == "$form") {
				continue
			}
		}
		out = append(out, ev)
	}
	return out
}

// Hash returns the name hash used for same-name sibling matching. The empty
// name hashes to zero.
func Hash(name string) uint32 {
	if name == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}
