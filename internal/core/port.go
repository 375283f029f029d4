package core

import (
	"fmt"

	"filament/internal/source"
)

// AccessKind discriminates Access.
type AccessKind uint8

const (
	AccessIndex AccessKind = iota + 1
	AccessRange
)

// Access selects ports out of a bundle: a single index or the half-open
// range [Start, End).
type Access struct {
	Kind  AccessKind `msgpack:"k"`
	Start Expr       `msgpack:"s"`
	End   Expr       `msgpack:"e,omitempty"`
}

// Index returns the single-index access {e}.
func Index(e Expr) Access { return Access{Kind: AccessIndex, Start: e} }

// Slice returns the range access {start..end}.
func Slice(start, end Expr) Access { return Access{Kind: AccessRange, Start: start, End: end} }

func (a Access) IsRange() bool { return a.Kind == AccessRange }

// Bounds returns [start, end) for either access form.
func (a Access) Bounds() (Expr, Expr) {
	if a.Kind == AccessIndex {
		return a.Start, a.Start.Add(Concrete(1))
	}
	return a.Start, a.End
}

func (a Access) Resolve(b *Binding) Access {
	out := Access{Kind: a.Kind, Start: a.Start.Resolve(b)}
	if a.Kind == AccessRange {
		out.End = a.End.Resolve(b)
	}
	return out
}

func (a Access) String() string {
	if a.Kind == AccessIndex {
		return fmt.Sprintf("{%s}", a.Start)
	}
	return fmt.Sprintf("{%s..%s}", a.Start, a.End)
}

// PortKind discriminates Port.
type PortKind uint8

const (
	// PortThis is a port of the enclosing component's signature.
	PortThis PortKind = iota + 1
	// PortInv is a scalar port of an invocation.
	PortInv
	// PortBundle is an access into a bundle visible in the component.
	PortBundle
	// PortInvBundle is an access into a bundle port of an invocation.
	PortInvBundle
	// PortConstant is a literal value.
	PortConstant
)

// Port is a reference to a port in a command.
type Port struct {
	Kind   PortKind    `msgpack:"k"`
	Name   Id          `msgpack:"name,omitempty"`
	Invoke Id          `msgpack:"inv,omitempty"`
	Access *Access     `msgpack:"access,omitempty"`
	Value  uint64      `msgpack:"value,omitempty"`
	Pos    source.Span `msgpack:"pos"`
}

// This refers to the signature port name.
func This(name Id) Port { return Port{Kind: PortThis, Name: name} }

// InvPort refers to port name of invocation inv.
func InvPort(inv, name Id) Port { return Port{Kind: PortInv, Invoke: inv, Name: name} }

// BundlePort accesses bundle name.
func BundlePort(name Id, a Access) Port { return Port{Kind: PortBundle, Name: name, Access: &a} }

// InvBundle accesses bundle port name of invocation inv.
func InvBundle(inv, name Id, a Access) Port {
	return Port{Kind: PortInvBundle, Invoke: inv, Name: name, Access: &a}
}

// ConstantPort is a literal port.
func ConstantPort(v uint64) Port { return Port{Kind: PortConstant, Value: v} }

// At returns p with its position set.
func (p Port) At(pos source.Span) Port {
	p.Pos = pos
	return p
}

// IsRangeAccess reports whether p splats into several ports.
func (p Port) IsRangeAccess() bool {
	return (p.Kind == PortBundle || p.Kind == PortInvBundle) && p.Access != nil && p.Access.IsRange()
}

func (p Port) Equal(o Port) bool {
	if p.Kind != o.Kind || p.Name != o.Name || p.Invoke != o.Invoke || p.Value != o.Value {
		return false
	}
	if (p.Access == nil) != (o.Access == nil) {
		return false
	}
	if p.Access == nil {
		return true
	}
	return p.Access.Kind == o.Access.Kind && p.Access.Start.Equal(o.Access.Start) &&
		(p.Access.Kind == AccessIndex || p.Access.End.Equal(o.Access.End))
}

func (p Port) String() string {
	switch p.Kind {
	case PortThis:
		return "this." + string(p.Name)
	case PortInv:
		return fmt.Sprintf("%s.%s", p.Invoke, p.Name)
	case PortBundle:
		return fmt.Sprintf("%s%s", p.Name, p.Access)
	case PortInvBundle:
		return fmt.Sprintf("%s.%s%s", p.Invoke, p.Name, p.Access)
	case PortConstant:
		return fmt.Sprintf("%d", p.Value)
	default:
		return "<invalid port>"
	}
}
