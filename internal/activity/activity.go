// Package activity defines the closed set of lifecycle and user activities a
// form node can react to, the status codes produced by processing them, and
// the name table used when a host asks to run an activity by name.
package activity

// Activity identifies a lifecycle or user event.
type Activity uint8

const (
	Unknown Activity = iota
	Click
	Change
	DocClose
	DocReady
	Enter
	Exit
	Full
	IndexChange
	Initialize
	InitCalculate
	MouseDown
	MouseEnter
	MouseExit
	MouseUp
	PostOpen
	PostPrint
	PostSave
	PostSign
	PostSubmit
	PreOpen
	PrePrint
	PreSave
	PreSign
	PreSubmit
	Ready
	Validate
	Calculate
)

var names = [...]string{
	Unknown:       "unknown",
	Click:         "click",
	Change:        "change",
	DocClose:      "docClose",
	DocReady:      "docReady",
	Enter:         "enter",
	Exit:          "exit",
	Full:          "full",
	IndexChange:   "indexChange",
	Initialize:    "initialize",
	InitCalculate: "initCalculate",
	MouseDown:     "mouseDown",
	MouseEnter:    "mouseEnter",
	MouseExit:     "mouseExit",
	MouseUp:       "mouseUp",
	PostOpen:      "postOpen",
	PostPrint:     "postPrint",
	PostSave:      "postSave",
	PostSign:      "postSign",
	PostSubmit:    "postSubmit",
	PreOpen:       "preOpen",
	PrePrint:      "prePrint",
	PreSave:       "preSave",
	PreSign:       "preSign",
	PreSubmit:     "preSubmit",
	Ready:         "ready",
	Validate:      "validate",
	Calculate:     "calculate",
}

// String returns the activity's canonical camel-case name.
func (a Activity) String() string {
	if int(a) < len(names) {
		return names[a]
	}
	return names[Unknown]
}

// Parse maps a canonical activity name (as used in form files) back to its
// Activity. Unlike Lookup it accepts every activity, including the internal
// ones that cannot be executed by name.
func Parse(name string) (Activity, bool) {
	for i, n := range names {
		if i == int(Unknown) {
			continue
		}
		if n == name {
			return Activity(i), true
		}
	}
	return Unknown, false
}

// All returns every known activity in declaration order.
func All() []Activity {
	out := make([]Activity, 0, len(names)-1)
	for i := 1; i < len(names); i++ {
		out = append(out, Activity(i))
	}
	return out
}
