// Package ir provides the arena-based intermediate representation used by the
// Filament middle-end.
//
// Every entity of a component (expressions, parameters, ports, time points,
// events, instances, invocations and diagnostic info) lives in an arena owned
// by that component and is referenced through a small integer handle. Handles
// are only meaningful for the component that produced them; references that
// cross component boundaries go through Foreign.
//
// Entities are immutable once added. Substitution (see Foldable) builds new
// nodes instead of rewriting existing ones.
package ir

// ExprIdx identifies an expression within a component.
type ExprIdx uint32

// ParamIdx identifies a parameter within a component.
type ParamIdx uint32

// PortIdx identifies a port (or bundle) within a component.
type PortIdx uint32

// TimeIdx identifies a time point within a component.
type TimeIdx uint32

// EventIdx identifies an event within a component.
type EventIdx uint32

// InstIdx identifies an instance within a component.
type InstIdx uint32

// InvIdx identifies an invocation within a component.
type InvIdx uint32

// InfoIdx identifies diagnostic information attached to an entity.
type InfoIdx uint32

// CompIdx identifies a component within a Context.
type CompIdx uint32

// Invalid handle constants (zero is sentinel).
const (
	NoExprIdx  ExprIdx  = 0
	NoParamIdx ParamIdx = 0
	NoPortIdx  PortIdx  = 0
	NoTimeIdx  TimeIdx  = 0
	NoEventIdx EventIdx = 0
	NoInstIdx  InstIdx  = 0
	NoInvIdx   InvIdx   = 0
	NoInfoIdx  InfoIdx  = 0
	NoCompIdx  CompIdx  = 0
)

// IsValid returns true if the handle is valid (non-zero).
func (id ExprIdx) IsValid() bool  { return id != NoExprIdx }
func (id ParamIdx) IsValid() bool { return id != NoParamIdx }
func (id PortIdx) IsValid() bool  { return id != NoPortIdx }
func (id TimeIdx) IsValid() bool  { return id != NoTimeIdx }
func (id EventIdx) IsValid() bool { return id != NoEventIdx }
func (id InstIdx) IsValid() bool  { return id != NoInstIdx }
func (id InvIdx) IsValid() bool   { return id != NoInvIdx }
func (id InfoIdx) IsValid() bool  { return id != NoInfoIdx }
func (id CompIdx) IsValid() bool  { return id != NoCompIdx }

// Foreign is a handle that belongs to another component. It must be resolved
// against the owning component through a Context, never against the
// component holding the reference.
type Foreign[I ~uint32] struct {
	Key   I
	Owner CompIdx
}

// NewForeign wraps a handle owned by comp.
func NewForeign[I ~uint32](key I, owner CompIdx) Foreign[I] {
	return Foreign[I]{Key: key, Owner: owner}
}
