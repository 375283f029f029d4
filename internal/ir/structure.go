package ir

import (
	"fmt"
	"slices"
)

// Range is an interval of time.
type Range struct {
	Start TimeIdx
	End   TimeIdx
}

// FoldWith substitutes parameters in both ends of r.
func (r Range) FoldWith(c *Component, subst SubstFn) Range {
	return Range{
		Start: r.Start.FoldWith(c, subst),
		End:   r.End.FoldWith(c, subst),
	}
}

// Liveness describes when a port carries a meaningful value. It is the
// bundle type
//
//	p[N]: for<i> @['G, 'G+i+10]
//
// with one index parameter and one length per dimension. Scalar ports are
// bundles with a single dimension of length 1.
type Liveness struct {
	Idxs  []ParamIdx
	Lens  []ExprIdx
	Range Range
}

// Dims returns the number of bundle dimensions.
func (l Liveness) Dims() int {
	return len(l.Idxs)
}

// FoldWith substitutes parameters in l. The index parameters bound by l are
// never substituted.
func (l Liveness) FoldWith(c *Component, subst SubstFn) Liveness {
	inner := shadow(l.Idxs, subst)
	return Liveness{
		Idxs:  slices.Clone(l.Idxs),
		Lens:  FoldSlice(l.Lens, c, inner),
		Range: l.Range.FoldWith(c, inner),
	}
}

// Direction of a port.
type Direction uint8

const (
	// DirIn is an input port.
	DirIn Direction = iota + 1
	// DirOut is an output port.
	DirOut
)

func (d Direction) IsIn() bool  { return d == DirIn }
func (d Direction) IsOut() bool { return d == DirOut }

// Reverse flips the direction.
func (d Direction) Reverse() Direction {
	if d == DirIn {
		return DirOut
	}
	return DirIn
}

func (d Direction) String() string {
	switch d {
	case DirIn:
		return "in"
	case DirOut:
		return "out"
	default:
		return "?"
	}
}

// PortOwnerKind enumerates the contexts that can define a port.
type PortOwnerKind uint8

const (
	// OwnerSig is a port on the component signature.
	OwnerSig PortOwnerKind = iota + 1
	// OwnerInv is a port created by an invocation.
	OwnerInv
	// OwnerLocal is a port declared in the component body.
	OwnerLocal
)

// PortOwner records where a port was defined.
//
// Signature ports store their direction reversed: inside the component an
// input behaves like something the component writes into its body.
// Local ports have no direction since both reads and writes are allowed.
type PortOwner struct {
	Kind PortOwnerKind
	Dir  Direction        // OwnerSig, OwnerInv
	Inv  InvIdx           // OwnerInv
	Base Foreign[PortIdx] // OwnerInv: port on the callee signature
}

// SigIn is the owner of an input on the signature.
func SigIn() PortOwner {
	return PortOwner{Kind: OwnerSig, Dir: DirOut}
}

// SigOut is the owner of an output on the signature.
func SigOut() PortOwner {
	return PortOwner{Kind: OwnerSig, Dir: DirIn}
}

// InvIn is the owner of an input port created by an invocation.
func InvIn(inv InvIdx, base Foreign[PortIdx]) PortOwner {
	return PortOwner{Kind: OwnerInv, Dir: DirIn, Inv: inv, Base: base}
}

// InvOut is the owner of an output port created by an invocation.
func InvOut(inv InvIdx, base Foreign[PortIdx]) PortOwner {
	return PortOwner{Kind: OwnerInv, Dir: DirOut, Inv: inv, Base: base}
}

// LocalOwner is the owner of a port declared in the body.
func LocalOwner() PortOwner {
	return PortOwner{Kind: OwnerLocal}
}

func (o PortOwner) IsSig() bool    { return o.Kind == OwnerSig }
func (o PortOwner) IsInv() bool    { return o.Kind == OwnerInv }
func (o PortOwner) IsLocal() bool  { return o.Kind == OwnerLocal }
func (o PortOwner) IsInvIn() bool  { return o.Kind == OwnerInv && o.Dir == DirIn }
func (o PortOwner) IsInvOut() bool { return o.Kind == OwnerInv && o.Dir == DirOut }

// IsSigIn checks for a signature input; the stored direction is flipped.
func (o PortOwner) IsSigIn() bool { return o.Kind == OwnerSig && o.Dir == DirOut }

// IsSigOut checks for a signature output; the stored direction is flipped.
func (o PortOwner) IsSigOut() bool { return o.Kind == OwnerSig && o.Dir == DirIn }

func (o PortOwner) String() string {
	switch o.Kind {
	case OwnerSig:
		if o.IsSigIn() {
			return "sig(in)"
		}
		return "sig(out)"
	case OwnerInv:
		return fmt.Sprintf("inv%d(%s)", o.Inv, o.Dir)
	case OwnerLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Port tracks the definition and liveness of a port. Ports generalize both
// bundles and scalar ports.
type Port struct {
	Owner PortOwner
	Width ExprIdx
	Live  Liveness
	Info  InfoIdx
}

func (p Port) IsSig() bool    { return p.Owner.IsSig() }
func (p Port) IsInv() bool    { return p.Owner.IsInv() }
func (p Port) IsInvIn() bool  { return p.Owner.IsInvIn() }
func (p Port) IsInvOut() bool { return p.Owner.IsInvOut() }
func (p Port) IsSigIn() bool  { return p.Owner.IsSigIn() }
func (p Port) IsSigOut() bool { return p.Owner.IsSigOut() }
func (p Port) IsLocal() bool  { return p.Owner.IsLocal() }

// IndexRange is an inclusive start and exclusive end into one bundle
// dimension.
type IndexRange struct {
	Start ExprIdx
	End   ExprIdx
}

// Access is a port access in bundle syntax, one range per dimension.
type Access struct {
	Port   PortIdx
	Ranges []IndexRange
}

// UnitAccess accesses the first element of a scalar port.
func UnitAccess(port PortIdx, c *Component) Access {
	return Access{
		Port:   port,
		Ranges: []IndexRange{{Start: c.Num(0), End: c.Num(1)}},
	}
}

// UnitRange reports whether [start, end) provably contains exactly one
// index. The check is syntactic: end must be the literal start+1 (either
// operand order) or the constant following a constant start.
func UnitRange(c *Component, start, end ExprIdx) bool {
	one, ok := c.exprs.Find(Concrete(1))
	if !ok {
		c.InternalError("constant 1 not found in component")
	}
	e := c.Expr(end)
	switch e.Kind {
	case ExprBin:
		if e.Op != OpAdd {
			return false
		}
		return (e.Rhs == one && e.Lhs == start) || (e.Lhs == one && e.Rhs == start)
	case ExprConcrete:
		s, ok := start.AsConcrete(c)
		return ok && e.Value == s+1
	default:
		return false
	}
}

// IsPort reports whether the access is guaranteed to denote a single port.
// The check is syntactic and therefore conservative.
func (a Access) IsPort(c *Component) bool {
	for _, r := range a.Ranges {
		if !UnitRange(c, r.Start, r.End) {
			return false
		}
	}
	return true
}

// BundleTyp returns the bundle type of the slice selected by the access.
// Indexing the result at i is equivalent to indexing the original port at
// start+i in every dimension.
func (a Access) BundleTyp(c *Component) Liveness {
	live := c.Port(a.Port).Live
	if len(live.Idxs) != len(a.Ranges) {
		c.InternalError("access to port%d has %d ranges but the bundle has %d dimensions",
			a.Port, len(a.Ranges), len(live.Idxs))
	}

	bind := NewBind()
	for i, idx := range live.Idxs {
		r := a.Ranges[i]
		if UnitRange(c, r.Start, r.End) {
			bind.Push(idx, r.Start)
		} else {
			bind.Push(idx, idx.Expr(c).Add(r.Start, c))
		}
	}

	rng := NewSubst(live.Range, bind).Apply(c)
	lens := make([]ExprIdx, len(a.Ranges))
	for i, r := range a.Ranges {
		lens[i] = r.End.Sub(r.Start, c)
	}
	return Liveness{
		Idxs:  slices.Clone(live.Idxs),
		Lens:  lens,
		Range: rng,
	}
}

// ParamOwnerKind enumerates the constructs that can define a parameter.
type ParamOwnerKind uint8

const (
	// ParamSig is passed in when the component is instantiated.
	ParamSig ParamOwnerKind = iota + 1
	// ParamExists is introduced by an existential binding.
	ParamExists
	// ParamInstance mirrors a parameter of an instantiated component.
	ParamInstance
	// ParamBundle is the index variable of a bundle dimension.
	ParamBundle
	// ParamLoop is a loop induction variable.
	ParamLoop
)

// ParamOwner records which construct defined a parameter.
type ParamOwner struct {
	Kind   ParamOwnerKind
	Opaque bool              // ParamExists: treated as instance-specific
	Inst   InstIdx           // ParamInstance
	Base   Foreign[ParamIdx] // ParamInstance
	Port   PortIdx           // ParamBundle
}

func SigParam() ParamOwner { return ParamOwner{Kind: ParamSig} }

func ExistsParam(opaque bool) ParamOwner { return ParamOwner{Kind: ParamExists, Opaque: opaque} }

func LoopParam() ParamOwner { return ParamOwner{Kind: ParamLoop} }

// BundleParam is the owner of the index parameter of a dimension of port.
func BundleParam(port PortIdx) ParamOwner { return ParamOwner{Kind: ParamBundle, Port: port} }

// InstanceParam mirrors base, a parameter of the component instantiated by inst.
func InstanceParam(inst InstIdx, base Foreign[ParamIdx]) ParamOwner {
	return ParamOwner{Kind: ParamInstance, Inst: inst, Base: base}
}

func (o ParamOwner) String() string {
	switch o.Kind {
	case ParamSig:
		return "sig"
	case ParamExists:
		if o.Opaque {
			return "opaque"
		}
		return "some"
	case ParamLoop:
		return "loop"
	case ParamBundle:
		return fmt.Sprintf("port%d", o.Port)
	case ParamInstance:
		return fmt.Sprintf("inst%d", o.Inst)
	default:
		return "unknown"
	}
}

// Param is a parameter. It carries no liveness: a bundle index is purely a
// name and the liveness lives on its port.
type Param struct {
	Owner ParamOwner
	Info  InfoIdx
}

func (p Param) IsSigOwned() bool { return p.Owner.Kind == ParamSig }

// IsLocal reports whether the parameter is a loop index.
func (p Param) IsLocal() bool { return p.Owner.Kind == ParamLoop }

// Event is an event with a delay. HasInterface marks events exposed for
// external synchronization.
type Event struct {
	Delay        TimeSub
	Info         InfoIdx
	HasInterface bool
}

// FoldWith substitutes parameters in the delay of e.
func (e Event) FoldWith(c *Component, subst SubstFn) Event {
	return Event{
		Delay:        e.Delay.FoldWith(c, subst),
		Info:         e.Info,
		HasInterface: e.HasInterface,
	}
}
