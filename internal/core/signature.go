package core

import "filament/internal/source"

// BundleType describes a bundle: Len ports indexed by Idx, each Bitwidth
// bits wide and live for Liveness, which may mention Idx.
type BundleType struct {
	Idx      Id    `msgpack:"i"`
	Len      Expr  `msgpack:"n"`
	Liveness Range `msgpack:"l"`
	Bitwidth Expr  `msgpack:"w"`
}

// Bundle is a named bundle, either declared in a signature or in a body.
type Bundle struct {
	Name Id          `msgpack:"name"`
	Typ  BundleType  `msgpack:"typ"`
	Pos  source.Span `msgpack:"pos"`
}

// PortDefKind discriminates PortDef.
type PortDefKind uint8

const (
	PortDefPort PortDefKind = iota + 1
	PortDefBundle
)

// PortDef is a signature port: a scalar port or a bundle of ports.
type PortDef struct {
	Kind     PortDefKind `msgpack:"k"`
	Name     Id          `msgpack:"name,omitempty"`
	Liveness Range       `msgpack:"live,omitempty"`
	Bitwidth Expr        `msgpack:"width,omitempty"`
	Bundle   *Bundle     `msgpack:"bundle,omitempty"`
	Pos      source.Span `msgpack:"pos"`
}

// ScalarPort returns a scalar port definition.
func ScalarPort(name Id, live Range, width Expr, pos source.Span) PortDef {
	return PortDef{Kind: PortDefPort, Name: name, Liveness: live, Bitwidth: width, Pos: pos}
}

// BundlePortDef wraps b as a port definition.
func BundlePortDef(b Bundle) PortDef {
	return PortDef{Kind: PortDefBundle, Bundle: &b, Pos: b.Pos}
}

func (p PortDef) IsBundle() bool { return p.Kind == PortDefBundle }

// PortName returns the port or bundle name.
func (p PortDef) PortName() Id {
	if p.Kind == PortDefBundle {
		return p.Bundle.Name
	}
	return p.Name
}

// ParamBind declares a signature parameter with an optional default.
type ParamBind struct {
	Name    Id          `msgpack:"name"`
	Default *Expr       `msgpack:"default,omitempty"`
	Pos     source.Span `msgpack:"pos"`
}

// EventBind declares a signature event with its delay.
type EventBind struct {
	Event   Id          `msgpack:"event"`
	Delay   TimeSub     `msgpack:"delay"`
	Default *Time       `msgpack:"default,omitempty"`
	Pos     source.Span `msgpack:"pos"`
}

// InterfaceDef ties an interface port to the event it triggers.
type InterfaceDef struct {
	Name  Id          `msgpack:"name"`
	Event Id          `msgpack:"event"`
	Pos   source.Span `msgpack:"pos"`
}

// Signature is everything callers see of a component.
type Signature struct {
	Name      Id             `msgpack:"name"`
	Params    []ParamBind    `msgpack:"params,omitempty"`
	Events    []EventBind    `msgpack:"events,omitempty"`
	Interface []InterfaceDef `msgpack:"interface,omitempty"`
	Inputs    []PortDef      `msgpack:"inputs,omitempty"`
	Outputs   []PortDef      `msgpack:"outputs,omitempty"`
	Facts     []Fact         `msgpack:"facts,omitempty"`
	Pos       source.Span    `msgpack:"pos"`
}

// ParamNames returns the signature parameters in declaration order.
func (s *Signature) ParamNames() []Id {
	out := make([]Id, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.Name
	}
	return out
}

// EventNames returns the signature events in declaration order.
func (s *Signature) EventNames() []Id {
	out := make([]Id, len(s.Events))
	for i, e := range s.Events {
		out[i] = e.Event
	}
	return out
}

// HasInterface reports whether event has an interface port.
func (s *Signature) HasInterface(event Id) bool {
	for _, d := range s.Interface {
		if d.Event == event {
			return true
		}
	}
	return false
}

// FindPort looks up a signature input or output by name.
func (s *Signature) FindPort(name Id) (PortDef, bool, bool) {
	for _, p := range s.Inputs {
		if p.PortName() == name {
			return p, true, true
		}
	}
	for _, p := range s.Outputs {
		if p.PortName() == name {
			return p, false, true
		}
	}
	return PortDef{}, false, false
}

// ReplacePorts returns a copy of s with every input and output replaced by
// the definitions f returns for it. isInput tells f which list p came from.
func (s Signature) ReplacePorts(f func(p PortDef, isInput bool) ([]PortDef, error)) (Signature, error) {
	out := s
	out.Inputs = nil
	out.Outputs = nil
	for _, p := range s.Inputs {
		ps, err := f(p, true)
		if err != nil {
			return Signature{}, err
		}
		out.Inputs = append(out.Inputs, ps...)
	}
	for _, p := range s.Outputs {
		ps, err := f(p, false)
		if err != nil {
			return Signature{}, err
		}
		out.Outputs = append(out.Outputs, ps...)
	}
	return out, nil
}
