package ir

import "fmt"

// InternalError reports a broken invariant of the IR. It is raised with
// panic and is never a user error.
type InternalError struct {
	Component string
	Msg       string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in component `%s': %s", e.Component, e.Msg)
}
