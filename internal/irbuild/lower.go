package irbuild

import (
	"filament/internal/core"
	"filament/internal/diag"
	"filament/internal/ir"
	"filament/internal/source"
)

type scoped struct {
	name  core.Id
	param ir.ParamIdx
}

type instInfo struct {
	idx    ir.InstIdx
	callee *callee
	bind   *core.Binding // callee params -> caller expressions
	pos    source.Span
}

type invInfo struct {
	idx   ir.InvIdx
	ports map[core.Id]ir.PortIdx
}

// compBuilder lowers one component. It only reads the components in
// built, which are never written while it runs.
type compBuilder struct {
	c     *ir.Component
	sig   *core.Signature
	built map[core.Id]*callee
	rep   diag.Reporter

	scope  []scoped
	sigPrm []ir.ParamIdx
	events map[core.Id]ir.EventIdx
	ports  map[core.Id]ir.PortIdx
	bound  map[core.Id]source.Span
	insts  map[core.Id]instInfo
	invs   map[core.Id]invInfo
}

func newCompBuilder(name core.Id, sig *core.Signature, built map[core.Id]*callee, bag *diag.Bag) *compBuilder {
	return &compBuilder{
		c:      ir.NewComponent(string(name)),
		sig:    sig,
		built:  built,
		rep:    diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		events: make(map[core.Id]ir.EventIdx),
		ports:  make(map[core.Id]ir.PortIdx),
		bound:  make(map[core.Id]source.Span),
		insts:  make(map[core.Id]instInfo),
		invs:   make(map[core.Id]invInfo),
	}
}

// self describes the built component to its users. idx is filled in once
// the component is added to the context.
func (cb *compBuilder) self() *callee {
	ports := make(map[core.Id]ir.PortIdx)
	for _, pd := range cb.sig.Inputs {
		ports[pd.PortName()] = cb.ports[pd.PortName()]
	}
	for _, pd := range cb.sig.Outputs {
		ports[pd.PortName()] = cb.ports[pd.PortName()]
	}
	return &callee{sig: cb.sig, params: cb.sigPrm, ports: ports}
}

// bind reports a duplicate definition of name in the component body.
func (cb *compBuilder) bind(kind string, name core.Id, pos source.Span) bool {
	if prev, dup := cb.bound[name]; dup {
		cb.rep.Report(diag.NameBound(kind, string(name), pos, prev))
		return false
	}
	cb.bound[name] = pos
	return true
}

func (cb *compBuilder) push(name core.Id, p ir.ParamIdx) {
	cb.scope = append(cb.scope, scoped{name: name, param: p})
}

func (cb *compBuilder) pop(n int) {
	cb.scope = cb.scope[:len(cb.scope)-n]
}

func (cb *compBuilder) param(name core.Id) (ir.ParamIdx, bool) {
	for i := len(cb.scope) - 1; i >= 0; i-- {
		if cb.scope[i].name == name {
			return cb.scope[i].param, true
		}
	}
	return ir.NoParamIdx, false
}

func (cb *compBuilder) expr(e core.Expr, pos source.Span) ir.ExprIdx {
	c := cb.c
	switch e.Kind {
	case 0:
		return c.Num(0)
	case core.ExprConcrete:
		return c.Num(e.Value)
	case core.ExprAbstract:
		p, ok := cb.param(e.Name)
		if !ok {
			cb.rep.Report(diag.UndefinedName("parameter", string(e.Name), pos))
			return c.Num(0)
		}
		return p.Expr(c)
	case core.ExprOp:
		l := cb.expr(*e.Left, pos)
		r := cb.expr(*e.Right, pos)
		switch e.Op {
		case core.OpAdd:
			return l.Add(r, c)
		case core.OpSub:
			return l.Sub(r, c)
		case core.OpMul:
			return l.Mul(r, c)
		case core.OpDiv:
			return c.AddExpr(ir.Bin(ir.OpDiv, l, r))
		case core.OpMod:
			return c.AddExpr(ir.Bin(ir.OpMod, l, r))
		}
	}
	c.InternalError("unknown expression %v", e)
	return ir.NoExprIdx
}

func (cb *compBuilder) time(t core.Time, pos source.Span) ir.TimeIdx {
	ev, ok := cb.events[t.Event]
	if !ok {
		cb.rep.Report(diag.UndefinedName("event", string(t.Event), pos))
		ev = cb.anyEvent()
	}
	return cb.c.AddTime(ir.Time{Event: ev, Offset: cb.expr(t.Offset, pos)})
}

// anyEvent stands in for an undefined event so lowering can continue and
// report further errors. The component is discarded.
func (cb *compBuilder) anyEvent() ir.EventIdx {
	for idx := range cb.c.Events().All() {
		return idx
	}
	return cb.c.AddEvent(ir.Event{Delay: ir.UnitDelay(cb.c.Num(1)), Info: cb.c.NewInfo("?", source.Unknown)})
}

func (cb *compBuilder) rng(r core.Range, pos source.Span) ir.Range {
	return ir.Range{Start: cb.time(r.Start, pos), End: cb.time(r.End, pos)}
}

func (cb *compBuilder) delay(d core.TimeSub, pos source.Span) ir.TimeSub {
	if d.Kind == core.TimeSubSym {
		return ir.SymDelay(cb.time(d.L, pos), cb.time(d.R, pos))
	}
	return ir.UnitDelay(cb.expr(d.Unit, pos))
}

// bundleSpec is the shape of a port before lowering. Scalar ports are
// bundles of length one with an unnamed index.
type bundleSpec struct {
	name  core.Id
	idx   core.Id
	len   core.Expr
	live  core.Range
	width core.Expr
	pos   source.Span
}

func specOf(pd core.PortDef) bundleSpec {
	if pd.IsBundle() {
		b := pd.Bundle
		return bundleSpec{name: b.Name, idx: b.Typ.Idx, len: b.Typ.Len, live: b.Typ.Liveness, width: b.Typ.Bitwidth, pos: b.Pos}
	}
	return bundleSpec{name: pd.Name, len: core.Concrete(1), live: pd.Liveness, width: pd.Bitwidth, pos: pd.Pos}
}

// port adds a one-dimensional port. The index parameter is created first
// so the liveness can mention it.
func (cb *compBuilder) port(owner ir.PortOwner, s bundleSpec) ir.PortIdx {
	c := cb.c
	want := c.NextPort()
	var idxInfo ir.InfoIdx
	if s.idx != "" {
		idxInfo = c.NewInfo(string(s.idx), s.pos)
	}
	idx := c.AddParam(ir.Param{Owner: ir.BundleParam(want), Info: idxInfo})
	length := cb.expr(s.len, s.pos)

	cb.push(s.idx, idx)
	live := cb.rng(s.live, s.pos)
	width := cb.expr(s.width, s.pos)
	cb.pop(1)

	got := c.AddPort(ir.Port{
		Owner: owner,
		Width: width,
		Live:  ir.Liveness{Idxs: []ir.ParamIdx{idx}, Lens: []ir.ExprIdx{length}, Range: live},
		Info:  c.NewInfo(string(s.name), s.pos),
	})
	if got != want {
		c.InternalError("port handle moved while building %s: got %d, reserved %d", s.name, got, want)
	}
	return got
}

// signature adds the parameters, events and ports of the signature.
func (cb *compBuilder) signature() {
	c, sig := cb.c, cb.sig
	for _, pb := range sig.Params {
		p := c.AddParam(ir.Param{Owner: ir.SigParam(), Info: c.NewInfo(string(pb.Name), pb.Pos)})
		cb.sigPrm = append(cb.sigPrm, p)
		cb.push(pb.Name, p)
	}

	// Delays may mention any event, so handles are fixed before the
	// events are added.
	next := c.Events().Next()
	for i, eb := range sig.Events {
		cb.events[eb.Event] = next + ir.EventIdx(i)
	}
	for i, eb := range sig.Events {
		got := c.AddEvent(ir.Event{
			Delay:        cb.delay(eb.Delay, eb.Pos),
			Info:         c.NewInfo(string(eb.Event), eb.Pos),
			HasInterface: sig.HasInterface(eb.Event),
		})
		if got != next+ir.EventIdx(i) {
			c.InternalError("event handle moved while building %s", eb.Event)
		}
	}

	for _, pd := range sig.Inputs {
		cb.sigPort(ir.SigIn(), pd)
	}
	for _, pd := range sig.Outputs {
		cb.sigPort(ir.SigOut(), pd)
	}

	for _, f := range sig.Facts {
		cb.fact(f)
	}
}

func (cb *compBuilder) sigPort(owner ir.PortOwner, pd core.PortDef) {
	s := specOf(pd)
	if !cb.bind("port", s.name, s.pos) {
		return
	}
	cb.ports[s.name] = cb.port(owner, s)
}

func (cb *compBuilder) fact(f core.Fact) {
	// Assumptions are givens for the checker, not obligations.
	if f.Assume {
		return
	}
	c := cb.c
	l, r := cb.time(f.Left, f.Pos), cb.time(f.Right, f.Pos)
	c.AddFact(cmpOp(f.Op), l, r, c.NewInfo("assert", f.Pos))
}

func cmpOp(op core.OrderOp) ir.CmpOp {
	switch op {
	case core.OrderGt:
		return ir.CmpGt
	case core.OrderGte:
		return ir.CmpGte
	default:
		return ir.CmpEq
	}
}
