package irbuild

import (
	"fmt"

	"filament/internal/core"
	"filament/internal/diag"
	"filament/internal/ir"
	"filament/internal/source"
)

// Commands are lowered in three rounds so a body may use names before the
// command that defines them: bundles and instances, then invocation ports,
// then everything that reads or writes ports.
func rank(k core.CommandKind) int {
	switch k {
	case core.CmdBundle, core.CmdInstance:
		return 0
	case core.CmdInvoke:
		return 1
	default:
		return 2
	}
}

func (cb *compBuilder) commands(cmds []core.Command) []ir.Command {
	parts := make([][]ir.Command, len(cmds))
	for round := range 3 {
		for i, cmd := range cmds {
			switch {
			case cmd.Kind == core.CmdInvoke && round == 2:
				parts[i] = append(parts[i], cb.invokeArgs(cmd.Invoke)...)
			case rank(cmd.Kind) == round:
				parts[i] = cb.command(cmd)
			}
		}
	}
	var out []ir.Command
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func (cb *compBuilder) command(cmd core.Command) []ir.Command {
	c := cb.c
	switch cmd.Kind {
	case core.CmdBundle:
		return cb.bundle(cmd.Bundle)
	case core.CmdInstance:
		return cb.instance(cmd.Instance)
	case core.CmdInvoke:
		return cb.invoke(cmd.Invoke)
	case core.CmdConnect:
		con := cmd.Connect
		dst, ok := cb.access(con.Dst, con.Pos)
		if !ok {
			return nil
		}
		src, ok := cb.access(con.Src, con.Pos)
		if !ok {
			return nil
		}
		return []ir.Command{cb.wire(dst, src, con.Pos)}
	case core.CmdForLoop:
		l := cmd.ForLoop
		idx := c.AddParam(ir.Param{Owner: ir.LoopParam(), Info: c.NewInfo(string(l.Idx), source.Unknown)})
		start, end := cb.expr(l.Start, source.Unknown), cb.expr(l.End, source.Unknown)
		cb.push(l.Idx, idx)
		body := cb.commands(l.Body)
		cb.pop(1)
		return []ir.Command{&ir.Loop{Index: idx, Start: start, End: end, Body: body}}
	case core.CmdIf:
		f := cmd.If
		cond := ir.Cond{
			Op:  cmpOp(f.Cond.Op),
			Lhs: cb.expr(f.Cond.Left, source.Unknown),
			Rhs: cb.expr(f.Cond.Right, source.Unknown),
		}
		return []ir.Command{&ir.If{Cond: cond, Then: cb.commands(f.Then), Alt: cb.commands(f.Alt)}}
	case core.CmdFact:
		cb.fact(*cmd.Fact)
		return nil
	case core.CmdFsm:
		// FSMs are expanded by the backend.
		return nil
	default:
		c.InternalError("unknown command kind %d", cmd.Kind)
		return nil
	}
}

func (cb *compBuilder) bundle(b *core.Bundle) []ir.Command {
	if !cb.bind("bundle", b.Name, b.Pos) {
		return nil
	}
	s := bundleSpec{name: b.Name, idx: b.Typ.Idx, len: b.Typ.Len, live: b.Typ.Liveness, width: b.Typ.Bitwidth, pos: b.Pos}
	p := cb.port(ir.LocalOwner(), s)
	cb.ports[b.Name] = p
	return []ir.Command{&ir.BundleDef{Port: p}}
}

func (cb *compBuilder) instance(in *core.Instance) []ir.Command {
	c := cb.c
	cal, ok := cb.built[in.Component]
	if !ok {
		cb.rep.Report(diag.UndefinedName("component", string(in.Component), in.Pos))
		return nil
	}
	if !cb.bind("instance", in.Name, in.Pos) {
		return nil
	}
	sig := cal.sig
	if len(in.Bindings) > len(sig.Params) {
		cb.misc(in.Pos, "component `%s' takes %d parameters, got %d", sig.Name, len(sig.Params), len(in.Bindings))
		return nil
	}

	bind := core.NewBinding()
	args := make([]ir.ExprIdx, len(sig.Params))
	for i, pb := range sig.Params {
		var e core.Expr
		switch {
		case i < len(in.Bindings):
			e = in.Bindings[i]
		case pb.Default != nil:
			e = pb.Default.Resolve(bind)
		default:
			cb.misc(in.Pos, "instance `%s' gives no value for parameter `%s' of `%s'", in.Name, pb.Name, sig.Name)
			return nil
		}
		bind.Push(pb.Name, e)
		args[i] = cb.expr(e, in.Pos)
	}

	idx := c.AddInstance(ir.Instance{Comp: cal.idx, Params: args, Info: c.NewInfo(string(in.Name), in.Pos)})
	for i, base := range cal.params {
		c.AddParam(ir.Param{
			Owner: ir.InstanceParam(idx, ir.NewForeign(base, cal.idx)),
			Info:  c.NewInfo(string(in.Name)+"."+string(sig.Params[i].Name), in.Pos),
		})
	}
	cb.insts[in.Name] = instInfo{idx: idx, callee: cal, bind: bind, pos: in.Pos}
	return []ir.Command{&ir.InstCmd{Inst: idx}}
}

// invoke schedules the callee events and adds one port per callee
// signature port, with the callee liveness rebased onto the invocation.
func (cb *compBuilder) invoke(inv *core.Invoke) []ir.Command {
	c := cb.c
	inst, ok := cb.insts[inv.Instance]
	if !ok {
		cb.rep.Report(diag.UndefinedName("instance", string(inv.Instance), inv.Pos))
		return nil
	}
	if !cb.bind("invocation", inv.Name, inv.Pos) {
		return nil
	}
	sig := inst.callee.sig
	if len(inv.AbstractVars) > len(sig.Events) {
		cb.misc(inv.Pos, "component `%s' takes %d events, got %d", sig.Name, len(sig.Events), len(inv.AbstractVars))
		return nil
	}

	evBind := core.NewEventBinding()
	times := make([]ir.TimeIdx, 0, len(sig.Events))
	for i, eb := range sig.Events {
		var t core.Time
		switch {
		case i < len(inv.AbstractVars):
			t = inv.AbstractVars[i]
		case eb.Default != nil:
			t = eb.Default.Resolve(inst.bind).ResolveEvent(evBind)
		default:
			cb.misc(inv.Pos, "invocation `%s' gives no time for event `%s' of `%s'", inv.Name, eb.Event, sig.Name)
			return nil
		}
		evBind.Push(eb.Event, t)
		times = append(times, cb.time(t, inv.Pos))
	}

	idx := c.Invokes().Next()
	info := invInfo{idx: idx, ports: make(map[core.Id]ir.PortIdx)}
	var all []ir.PortIdx
	add := func(pd core.PortDef, isInput bool) {
		s := specOf(pd)
		name := s.name
		base := ir.NewForeign(inst.callee.ports[name], inst.callee.idx)
		owner := ir.InvOut(idx, base)
		if isInput {
			owner = ir.InvIn(idx, base)
		}
		s.name = inv.Name + "." + name
		s.len = s.len.Resolve(inst.bind)
		s.live = s.live.Resolve(inst.bind).ResolveEvent(evBind)
		s.width = s.width.Resolve(inst.bind)
		s.pos = inv.Pos
		p := cb.port(owner, s)
		info.ports[name] = p
		all = append(all, p)
	}
	for _, pd := range sig.Inputs {
		add(pd, true)
	}
	for _, pd := range sig.Outputs {
		add(pd, false)
	}

	got := c.AddInvoke(ir.Invoke{Inst: inst.idx, Events: times, Ports: all, Info: c.NewInfo(string(inv.Name), inv.Pos)})
	if got != idx {
		c.InternalError("invocation handle moved while building %s", inv.Name)
	}
	cb.invs[inv.Name] = info
	return []ir.Command{&ir.InvCmd{Inv: idx}}
}

// invokeArgs connects the arguments of an invocation to its input ports.
// Arguments match inputs one to one, or one per element when a range
// argument was split by bundle elimination.
func (cb *compBuilder) invokeArgs(inv *core.Invoke) []ir.Command {
	info, ok := cb.invs[inv.Name]
	if !ok || len(inv.Ports) == 0 {
		return nil
	}
	c := cb.c
	sig := cb.insts[inv.Instance].callee.sig

	var dsts []ir.Access
	var lens []uint64
	var total uint64
	for _, pd := range sig.Inputs {
		p := info.ports[pd.PortName()]
		n, ok := c.Port(p).Live.Lens[0].AsConcrete(c)
		if !ok {
			n = 1
		}
		lens = append(lens, n)
		total += n
		dsts = append(dsts, full(c, p))
	}

	if len(inv.Ports) != len(dsts) {
		if uint64(len(inv.Ports)) != total {
			cb.misc(inv.Pos, "invocation `%s' passes %d arguments to %d inputs of `%s'", inv.Name, len(inv.Ports), len(dsts), sig.Name)
			return nil
		}
		var split []ir.Access
		for i, d := range dsts {
			for k := range lens[i] {
				split = append(split, ir.Access{
					Port:   d.Port,
					Ranges: []ir.IndexRange{{Start: c.Num(k), End: c.Num(k + 1)}},
				})
			}
		}
		dsts = split
	}

	var out []ir.Command
	for i, arg := range inv.Ports {
		src, ok := cb.access(arg, inv.Pos)
		if !ok {
			continue
		}
		out = append(out, cb.wire(dsts[i], src, inv.Pos))
	}
	return out
}

// access resolves a port reference. Constants have no liveness and yield
// false without a diagnostic.
func (cb *compBuilder) access(p core.Port, pos source.Span) (ir.Access, bool) {
	if p.Pos != (source.Span{}) {
		pos = p.Pos
	}
	var (
		port ir.PortIdx
		ok   bool
	)
	switch p.Kind {
	case core.PortConstant:
		return ir.Access{}, false
	case core.PortThis, core.PortBundle:
		port, ok = cb.ports[p.Name]
		if !ok {
			cb.rep.Report(diag.UndefinedName("port", string(p.Name), pos))
			return ir.Access{}, false
		}
	case core.PortInv, core.PortInvBundle:
		inv, found := cb.invs[p.Invoke]
		if !found {
			cb.rep.Report(diag.UndefinedName("invocation", string(p.Invoke), pos))
			return ir.Access{}, false
		}
		port, ok = inv.ports[p.Name]
		if !ok {
			cb.rep.Report(diag.UndefinedName("port", string(p.Invoke)+"."+string(p.Name), pos))
			return ir.Access{}, false
		}
	default:
		cb.c.InternalError("unknown port kind %d", p.Kind)
	}

	if p.Access == nil {
		return full(cb.c, port), true
	}
	s, e := p.Access.Bounds()
	return ir.Access{
		Port:   port,
		Ranges: []ir.IndexRange{{Start: cb.expr(s, pos), End: cb.expr(e, pos)}},
	}, true
}

func full(c *ir.Component, p ir.PortIdx) ir.Access {
	lens := c.Port(p).Live.Lens
	rs := make([]ir.IndexRange, len(lens))
	for i, n := range lens {
		rs[i] = ir.IndexRange{Start: c.Num(0), End: n}
	}
	return ir.Access{Port: p, Ranges: rs}
}

// wire builds dst = src and records its timing obligations: the source
// must be available for the whole window in which the destination is
// read. Both sides are compared element-wise by binding the source index
// parameters to the destination ones.
func (cb *compBuilder) wire(dst, src ir.Access, pos source.Span) *ir.Connect {
	c := cb.c
	info := c.NewInfo("connect", pos)
	dt, st := dst.BundleTyp(c), src.BundleTyp(c)
	if dt.Dims() != st.Dims() {
		cb.misc(pos, "connection between %d and %d dimensional bundles", dt.Dims(), st.Dims())
		return &ir.Connect{Dst: dst, Src: src, Info: info}
	}
	for i := range dt.Lens {
		dn, dok := dt.Lens[i].AsConcrete(c)
		sn, sok := st.Lens[i].AsConcrete(c)
		if dok && sok && dn != sn {
			cb.misc(pos, "connection writes %d signals from %d", dn, sn)
		}
	}

	bind := ir.NewBind()
	for i, idx := range st.Idxs {
		bind.Push(idx, dt.Idxs[i].Expr(c))
	}
	sr := ir.NewSubst(st.Range, bind).Apply(c)
	c.AddFact(ir.CmpGte, dt.Range.Start, sr.Start, info)
	c.AddFact(ir.CmpGte, sr.End, dt.Range.End, info)
	return &ir.Connect{Dst: dst, Src: src, Info: info}
}

func (cb *compBuilder) misc(pos source.Span, format string, args ...any) {
	cb.rep.Report(diag.NewError(diag.Misc, pos, fmt.Sprintf(format, args...)))
}
