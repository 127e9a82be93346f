package activity

// Scope restricts which nodes an activity may be executed on when it is
// requested by name, and whether the execution descends into children.
type Scope uint8

const (
	// ScopeNone activities are document-level and never run by name.
	ScopeNone Scope = iota
	// ScopeDeep runs on any node and recurses into its containers.
	ScopeDeep
	// ScopeNode runs on any node without recursion.
	ScopeNode
	// ScopeSubform runs on subforms only.
	ScopeSubform
	// ScopeFieldOrGroup runs on fields and exclusion groups.
	ScopeFieldOrGroup
	// ScopeField runs on fields only.
	ScopeField
	// ScopeSignature runs on fields whose UI is a signature.
	ScopeSignature
	// ScopeChoiceList runs on choice-list fields that are not list boxes.
	ScopeChoiceList
)

// Recursive reports whether execution under this scope descends into
// child containers.
func (s Scope) Recursive() bool {
	return s == ScopeDeep
}

// Entry is one row of the by-name execution table.
type Entry struct {
	Name     string
	Activity Activity
	Scope    Scope
}

var table = []Entry{
	{"postSubmit", PostSubmit, ScopeNone},
	{"preSubmit", PreSubmit, ScopeNone},
	{"mouseEnter", MouseEnter, ScopeField},
	{"postPrint", PostPrint, ScopeNone},
	{"preOpen", PreOpen, ScopeChoiceList},
	{"initialize", Initialize, ScopeDeep},
	{"mouseExit", MouseExit, ScopeField},
	{"docClose", DocClose, ScopeNone},
	{"preSave", PreSave, ScopeNone},
	{"preSign", PreSign, ScopeSignature},
	{"exit", Exit, ScopeNode},
	{"docReady", DocReady, ScopeNone},
	{"validate", Validate, ScopeDeep},
	{"indexChange", IndexChange, ScopeSubform},
	{"change", Change, ScopeFieldOrGroup},
	{"prePrint", PrePrint, ScopeNone},
	{"mouseDown", MouseDown, ScopeField},
	{"full", Full, ScopeFieldOrGroup},
	{"mouseUp", MouseUp, ScopeField},
	{"click", Click, ScopeFieldOrGroup},
	{"calculate", Calculate, ScopeDeep},
	{"postOpen", PostOpen, ScopeChoiceList},
	{"enter", Enter, ScopeNode},
	{"postSave", PostSave, ScopeNone},
	{"postSign", PostSign, ScopeSignature},
}

var byName = func() map[string]Entry {
	m := make(map[string]Entry, len(table))
	for _, e := range table {
		m[e.Name] = e
	}
	return m
}()

// Lookup returns the by-name execution entry for name. Names are
// case-sensitive, matching the canonical activity names.
func Lookup(name string) (Entry, bool) {
	e, ok := byName[name]
	return e, ok
}

// Table returns a copy of the by-name execution table.
func Table() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}
