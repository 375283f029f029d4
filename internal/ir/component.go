package ir

import (
	"fmt"

	"filament/internal/source"
)

// Info is diagnostic information threaded through every transform. The IR
// never inspects it.
type Info struct {
	Name source.StringID
	Pos  source.Span
}

// Instance is a named copy of a component, with arguments for the
// signature parameters of the instantiated component.
type Instance struct {
	Comp   CompIdx
	Params []ExprIdx
	Info   InfoIdx
}

// Invoke activates an instance: it schedules the callee events at Events and
// defines one port per callee signature port.
type Invoke struct {
	Inst   InstIdx
	Events []TimeIdx
	Ports  []PortIdx
	Info   InfoIdx
}

// Component owns the arenas of one circuit definition.
type Component struct {
	Name     string
	IsExtern bool

	exprs  Interned[ExprIdx, Expr]
	times  Interned[TimeIdx, Time]
	params Store[ParamIdx, Param]
	ports  Store[PortIdx, Port]
	events Store[EventIdx, Event]
	insts  Store[InstIdx, Instance]
	invs   Store[InvIdx, Invoke]
	infos  Store[InfoIdx, Info]

	// Cmds is the body of the component.
	Cmds []Command
	// Facts are timing obligations for the interval checker.
	Facts []Fact

	strs *source.Interner
}

// NewComponent creates an empty component with the constants 0 and 1
// already interned.
func NewComponent(name string) *Component {
	return newComponent(name, source.NewInterner())
}

func newComponent(name string, strs *source.Interner) *Component {
	c := &Component{Name: name, strs: strs}
	c.Num(0)
	c.Num(1)
	return c
}

// Intern records a name for an Info entry.
func (c *Component) Intern(name string) source.StringID {
	if c.strs == nil {
		c.strs = source.NewInterner()
	}
	return c.strs.Intern(name)
}

// NameOf returns the name recorded by Intern, or the empty string.
func (c *Component) NameOf(id source.StringID) string {
	if c.strs == nil {
		return ""
	}
	s, _ := c.strs.Lookup(id)
	return s
}

// NewInfo interns name and records an Info entry for it.
func (c *Component) NewInfo(name string, pos source.Span) InfoIdx {
	return c.AddInfo(Info{Name: c.Intern(name), Pos: pos})
}

// InternalError aborts on a broken IR invariant.
func (c *Component) InternalError(format string, args ...any) {
	name := "<unknown>"
	if c != nil {
		name = c.Name
	}
	panic(&InternalError{Component: name, Msg: fmt.Sprintf(format, args...)})
}

// Num interns the constant n.
func (c *Component) Num(n uint64) ExprIdx {
	return c.exprs.Add(Concrete(n))
}

// Exprs gives read access to the expression arena, e.g. for Find.
func (c *Component) Exprs() *Interned[ExprIdx, Expr] { return &c.exprs }

func (c *Component) AddExpr(e Expr) ExprIdx         { return c.exprs.Add(e) }
func (c *Component) AddTime(t Time) TimeIdx         { return c.times.Add(t) }
func (c *Component) AddParam(p Param) ParamIdx      { return c.params.Add(p) }
func (c *Component) AddPort(p Port) PortIdx         { return c.ports.Add(p) }
func (c *Component) AddEvent(e Event) EventIdx      { return c.events.Add(e) }
func (c *Component) AddInstance(i Instance) InstIdx { return c.insts.Add(i) }
func (c *Component) AddInvoke(i Invoke) InvIdx      { return c.invs.Add(i) }
func (c *Component) AddInfo(i Info) InfoIdx         { return c.infos.Add(i) }

// NextPort returns the handle the next AddPort will return. Bundle index
// parameters need the handle of their port before the port exists.
func (c *Component) NextPort() PortIdx { return c.ports.Next() }

// Expr returns the expression for idx.
func (c *Component) Expr(idx ExprIdx) Expr {
	e, ok := c.exprs.Lookup(idx)
	if !ok {
		c.InternalError("unknown expression %d", idx)
	}
	return e
}

// Time returns the time point for idx.
func (c *Component) Time(idx TimeIdx) Time {
	t, ok := c.times.Lookup(idx)
	if !ok {
		c.InternalError("unknown time %d", idx)
	}
	return t
}

// Param returns the parameter for idx.
func (c *Component) Param(idx ParamIdx) Param {
	p, ok := c.params.Lookup(idx)
	if !ok {
		c.InternalError("unknown parameter %d", idx)
	}
	return p
}

// Port returns the port for idx.
func (c *Component) Port(idx PortIdx) Port {
	p, ok := c.ports.Lookup(idx)
	if !ok {
		c.InternalError("unknown port %d", idx)
	}
	return p
}

// Event returns the event for idx.
func (c *Component) Event(idx EventIdx) Event {
	e, ok := c.events.Lookup(idx)
	if !ok {
		c.InternalError("unknown event %d", idx)
	}
	return e
}

// Instance returns the instance for idx.
func (c *Component) Instance(idx InstIdx) Instance {
	i, ok := c.insts.Lookup(idx)
	if !ok {
		c.InternalError("unknown instance %d", idx)
	}
	return i
}

// Invoke returns the invocation for idx.
func (c *Component) Invoke(idx InvIdx) Invoke {
	i, ok := c.invs.Lookup(idx)
	if !ok {
		c.InternalError("unknown invocation %d", idx)
	}
	return i
}

// Info returns the info for idx. The zero handle yields an empty Info.
func (c *Component) Info(idx InfoIdx) Info {
	if idx == NoInfoIdx {
		return Info{}
	}
	i, ok := c.infos.Lookup(idx)
	if !ok {
		c.InternalError("unknown info %d", idx)
	}
	return i
}

// Params iterates over all parameters.
func (c *Component) Params() *Store[ParamIdx, Param] { return &c.params }

// Ports iterates over all ports.
func (c *Component) Ports() *Store[PortIdx, Port] { return &c.ports }

// Events iterates over all events.
func (c *Component) Events() *Store[EventIdx, Event] { return &c.events }

// Instances iterates over all instances.
func (c *Component) Instances() *Store[InstIdx, Instance] { return &c.insts }

// Invokes iterates over all invocations.
func (c *Component) Invokes() *Store[InvIdx, Invoke] { return &c.invs }

// SigParams returns the signature parameters in declaration order.
func (c *Component) SigParams() []ParamIdx {
	var out []ParamIdx
	for idx, p := range c.params.All() {
		if p.IsSigOwned() {
			out = append(out, idx)
		}
	}
	return out
}

// SigPorts returns the signature ports in declaration order.
func (c *Component) SigPorts() []PortIdx {
	var out []PortIdx
	for idx, p := range c.ports.All() {
		if p.IsSig() {
			out = append(out, idx)
		}
	}
	return out
}
