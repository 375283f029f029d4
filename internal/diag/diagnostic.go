package diag

import (
	"fmt"

	"filament/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// UndefinedName reports a reference to a kind ("port", "event", ...) that
// is not in scope.
func UndefinedName(kind, name string, at source.Span) Diagnostic {
	return NewError(Undefined, at, fmt.Sprintf("undefined %s `%s'", kind, name))
}

// NameBound reports a second definition of name; prev locates the first.
func NameBound(kind, name string, at, prev source.Span) Diagnostic {
	return NewError(AlreadyBound, at, fmt.Sprintf("%s `%s' is already bound", kind, name)).
		WithNote(prev, "previously bound here")
}

// Unproven reports a timing fact the checker could not discharge.
func Unproven(fact string, at source.Span) Diagnostic {
	return NewError(CannotProve, at, fmt.Sprintf("cannot prove %s", fact))
}

// Error lets a Diagnostic travel through error returns.
type Error struct {
	Diagnostic
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Message)
}

// AsError wraps d.
func (d Diagnostic) AsError() error { return &Error{Diagnostic: d} }
