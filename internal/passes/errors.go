// Package passes holds lowering passes over the core program.
package passes

import (
	"errors"
	"fmt"

	"filament/internal/core"
	"filament/internal/source"
)

// ErrorKind classifies pass failures.
type ErrorKind uint8

const (
	// ErrNonConstantLength: a signature bundle length did not fold to a constant.
	ErrNonConstantLength ErrorKind = iota + 1
	// ErrNonConstantAccess: a splatted range had symbolic bounds.
	ErrNonConstantAccess
	ErrUnknownInvocation
	ErrUnknownInstance
	ErrUnknownBundle
	// ErrUnimplemented: a range access into an invocation bundle on the
	// write side of a connect.
	ErrUnimplemented
	// ErrDimensionMismatch: a splatted range runs past the bundle.
	ErrDimensionMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNonConstantLength:
		return "non-constant bundle length"
	case ErrNonConstantAccess:
		return "non-constant bundle access"
	case ErrUnknownInvocation:
		return "unknown invocation"
	case ErrUnknownInstance:
		return "unknown instance"
	case ErrUnknownBundle:
		return "unknown bundle"
	case ErrUnimplemented:
		return "unimplemented"
	case ErrDimensionMismatch:
		return "bundle access out of range"
	default:
		return "unknown error"
	}
}

// Error is a pass failure tied to a component.
type Error struct {
	Kind      ErrorKind
	Component core.Id
	Msg       string
	Pos       source.Span
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s in component `%s': %s", e.Kind, e.Component, e.Msg)
}

func errorf(kind ErrorKind, comp core.Id, pos source.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Component: comp, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// IsKind reports whether err wraps a pass Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
