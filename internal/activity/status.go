package activity

import "strings"

// Status is the result of processing an activity on a node. Statuses are
// plain values that callers combine with bitwise OR; NotExist is the zero
// value so that an accumulator starts out as "nothing ran".
type Status uint8

const (
	NotExist Status = 0
	Success  Status = 1 << (iota - 1)
	Error
	Disabled
)

// Has reports whether every bit of flag is set in s. Has(NotExist) is only
// true for NotExist itself.
func (s Status) Has(flag Status) bool {
	if flag == NotExist {
		return s == NotExist
	}
	return s&flag == flag
}

// Failed reports whether the Error bit is set.
func (s Status) Failed() bool {
	return s&Error != 0
}

func (s Status) String() string {
	if s == NotExist {
		return "not_exist"
	}
	var parts []string
	if s&Success != 0 {
		parts = append(parts, "success")
	}
	if s&Error != 0 {
		parts = append(parts, "error")
	}
	if s&Disabled != 0 {
		parts = append(parts, "disabled")
	}
	return strings.Join(parts, "|")
}
