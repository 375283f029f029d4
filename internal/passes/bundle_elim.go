package passes

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"filament/internal/core"
	"filament/internal/trace"
)

// Options configures BundleElim.
type Options struct {
	// Jobs bounds how many component bodies are rewritten at once.
	// Zero means GOMAXPROCS; one rewrites sequentially.
	Jobs int
}

type spliceKey struct {
	comp   core.Id
	bundle core.Id
}

// sigLowering is the result of lowering one signature.
type sigLowering struct {
	sig  core.Signature
	pre  []core.Command
	post []core.Command
}

// bundleElim holds the state shared by every component: the splice table
// and the signatures of all callees. Both are read-only once the signature
// phase is done.
type bundleElim struct {
	splice map[spliceKey][]core.Id
	sigs   map[core.Id]*core.Signature
}

// BundleElim rewrites ns so that no component signature carries a bundle.
// Each signature bundle p[N] becomes scalar ports p_0..p_{N-1}; the bundle
// is kept as a local declaration wired to the new ports, and range accesses
// that name a signature bundle are splatted into the new ports. Extern
// signatures are left as they are. ns is not modified.
func BundleElim(ctx context.Context, ns *core.Namespace, opts Options) (*core.Namespace, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "bundle_elim", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	e := &bundleElim{
		splice: make(map[spliceKey][]core.Id),
		sigs:   ns.Signatures(),
	}

	lowered := make([]sigLowering, len(ns.Components))
	for i := range ns.Components {
		l, err := e.signature(&ns.Components[i].Sig)
		if err != nil {
			return nil, err
		}
		lowered[i] = l
	}

	out := &core.Namespace{
		Imports:    ns.Imports,
		Externs:    ns.Externs,
		Components: make([]core.Component, len(ns.Components)),
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range ns.Components {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			comp := &ns.Components[i]
			cspan := trace.Begin(tracer, trace.ScopeModule, "component:"+string(comp.Sig.Name), span.ID())
			r := e.rewriter(comp.Sig.Name)
			body, err := r.body(comp.Body)
			if err != nil {
				cspan.End("error")
				return err
			}
			l := lowered[i]
			full := make([]core.Command, 0, len(l.pre)+len(body)+len(l.post))
			full = append(full, l.pre...)
			full = append(full, body...)
			full = append(full, l.post...)
			out.Components[i] = core.Component{Sig: l.sig, Body: full}
			cspan.WithExtra("commands", strconv.Itoa(len(full))).End("")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// signature lowers every bundle port of sig and records its splice entry.
func (e *bundleElim) signature(sig *core.Signature) (sigLowering, error) {
	var l sigLowering
	lowered, err := sig.ReplacePorts(func(p core.PortDef, isInput bool) ([]core.PortDef, error) {
		if !p.IsBundle() {
			return []core.PortDef{p}, nil
		}
		return e.sigBundle(sig.Name, p.Bundle, isInput, &l)
	})
	if err != nil {
		return sigLowering{}, err
	}
	l.sig = lowered
	return l, nil
}

func (e *bundleElim) sigBundle(comp core.Id, b *core.Bundle, isInput bool, l *sigLowering) ([]core.PortDef, error) {
	l.pre = append(l.pre, core.BundleCmd(*b))

	n, err := b.Typ.Len.Concrete()
	if err != nil {
		return nil, errorf(ErrNonConstantLength, comp, b.Pos,
			"bundle `%s' has length `%s'", b.Name, b.Typ.Len)
	}

	ports := make([]core.PortDef, 0, n)
	names := make([]core.Id, 0, n)
	for i := range n {
		bind := core.NewBinding(core.Bind(b.Typ.Idx, core.Concrete(i)))
		name := core.Id(fmt.Sprintf("%s_%d", b.Name, i))
		live := b.Typ.Liveness.Resolve(bind)
		ports = append(ports, core.ScalarPort(name, live, b.Typ.Bitwidth.Resolve(bind), b.Pos))
		names = append(names, name)

		this := core.This(name).At(b.Pos)
		elem := core.BundlePort(b.Name, core.Index(core.Concrete(i))).At(b.Pos)
		if isInput {
			l.pre = append(l.pre, core.Connection(elem, this))
		} else {
			l.post = append(l.post, core.Connection(this, elem))
		}
	}
	e.splice[spliceKey{comp: comp, bundle: b.Name}] = names
	return ports, nil
}

// rewriter is the per-component half of the pass. Its maps are filled from
// the component's own body and dropped when the component is done.
type rewriter struct {
	*bundleElim
	comp  core.Id
	insts map[core.Id]core.Id
	invs  map[core.Id]core.Id
}

func (e *bundleElim) rewriter(comp core.Id) *rewriter {
	return &rewriter{
		bundleElim: e,
		comp:       comp,
		insts:      make(map[core.Id]core.Id),
		invs:       make(map[core.Id]core.Id),
	}
}

func (r *rewriter) body(cmds []core.Command) ([]core.Command, error) {
	core.Walk(cmds, func(c core.Command) {
		switch c.Kind {
		case core.CmdInstance:
			r.insts[c.Instance.Name] = c.Instance.Component
		case core.CmdInvoke:
			r.invs[c.Invoke.Name] = c.Invoke.Instance
		}
	})
	return r.commands(cmds)
}

func (r *rewriter) commands(cmds []core.Command) ([]core.Command, error) {
	out := make([]core.Command, 0, len(cmds))
	for _, c := range cmds {
		nc, err := r.command(c)
		if err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, nil
}

func (r *rewriter) command(c core.Command) (core.Command, error) {
	switch c.Kind {
	case core.CmdInvoke:
		inv := *c.Invoke
		if inv.Ports != nil {
			ports := make([]core.Port, 0, len(inv.Ports))
			for _, p := range inv.Ports {
				ps, err := r.port(p)
				if err != nil {
					return core.Command{}, err
				}
				ports = append(ports, ps...)
			}
			inv.Ports = ports
		}
		return core.InvokeCmd(inv), nil

	case core.CmdConnect:
		con := *c.Connect
		if con.Dst.Kind == core.PortInvBundle && con.Dst.IsRangeAccess() {
			return core.Command{}, errorf(ErrUnimplemented, r.comp, con.Dst.Pos,
				"cannot splat `%s' on the left of a connect", con.Dst)
		}
		dst, err := r.scalar(con.Dst)
		if err != nil {
			return core.Command{}, err
		}
		src, err := r.scalar(con.Src)
		if err != nil {
			return core.Command{}, err
		}
		con.Dst, con.Src = dst, src
		if con.Guard != nil {
			guard := make([]core.Port, len(con.Guard))
			for i, g := range con.Guard {
				if guard[i], err = r.scalar(g); err != nil {
					return core.Command{}, err
				}
			}
			con.Guard = guard
		}
		return core.ConnectCmd(con), nil

	case core.CmdForLoop:
		l := *c.ForLoop
		body, err := r.commands(l.Body)
		if err != nil {
			return core.Command{}, err
		}
		l.Body = body
		return core.ForLoopCmd(l), nil

	case core.CmdIf:
		i := *c.If
		then, err := r.commands(i.Then)
		if err != nil {
			return core.Command{}, err
		}
		alt, err := r.commands(i.Alt)
		if err != nil {
			return core.Command{}, err
		}
		i.Then, i.Alt = then, alt
		return core.IfCmd(i), nil

	default:
		return c, nil
	}
}

// port expands one invocation argument. Range accesses fan out into one
// reference per index; everything else is rewritten in place.
func (r *rewriter) port(p core.Port) ([]core.Port, error) {
	if !p.IsRangeAccess() {
		sp, err := r.scalar(p)
		if err != nil {
			return nil, err
		}
		return []core.Port{sp}, nil
	}

	start, end, err := r.bounds(p)
	if err != nil {
		return nil, err
	}

	switch p.Kind {
	case core.PortBundle:
		if names, ok := r.splice[spliceKey{comp: r.comp, bundle: p.Name}]; ok {
			names, err := r.slice(names, p, start, end)
			if err != nil {
				return nil, err
			}
			out := make([]core.Port, len(names))
			for i, n := range names {
				out[i] = core.This(n).At(p.Pos)
			}
			return out, nil
		}
		out := make([]core.Port, 0, end-start)
		for idx := start; idx < end; idx++ {
			out = append(out, core.BundlePort(p.Name, core.Index(core.Concrete(idx))).At(p.Pos))
		}
		return out, nil

	default: // core.PortInvBundle
		callee, err := r.callee(p)
		if err != nil {
			return nil, err
		}
		names, ok := r.splice[spliceKey{comp: callee, bundle: p.Name}]
		if !ok {
			// Extern bundles are not lowered; index them one by one.
			if _, err := r.calleeBundle(callee, p); err != nil {
				return nil, err
			}
			out := make([]core.Port, 0, end-start)
			for idx := start; idx < end; idx++ {
				out = append(out, core.InvBundle(p.Invoke, p.Name, core.Index(core.Concrete(idx))).At(p.Pos))
			}
			return out, nil
		}
		names, err = r.slice(names, p, start, end)
		if err != nil {
			return nil, err
		}
		out := make([]core.Port, len(names))
		for i, n := range names {
			out[i] = core.InvPort(p.Invoke, n).At(p.Pos)
		}
		return out, nil
	}
}

// scalar rewrites a single-index access into a lowered callee bundle to the
// generated port it now names. Other ports are left untouched. So is a
// symbolic index such as p.y{#n} inside a loop: the callee no longer has
// bundle y, and such an access is for the checker downstream to reject.
func (r *rewriter) scalar(p core.Port) (core.Port, error) {
	if p.Kind != core.PortInvBundle || p.Access == nil || p.Access.IsRange() {
		return p, nil
	}
	callee, err := r.callee(p)
	if err != nil {
		return core.Port{}, err
	}
	names, ok := r.splice[spliceKey{comp: callee, bundle: p.Name}]
	if !ok {
		return p, nil
	}
	idx, err := p.Access.Start.Concrete()
	if err != nil {
		return p, nil
	}
	if idx >= uint64(len(names)) {
		return core.Port{}, errorf(ErrDimensionMismatch, r.comp, p.Pos,
			"index %d into `%s' of length %d", idx, p, len(names))
	}
	return core.InvPort(p.Invoke, names[idx]).At(p.Pos), nil
}

func (r *rewriter) bounds(p core.Port) (uint64, uint64, error) {
	start, err := p.Access.Start.Concrete()
	if err != nil {
		return 0, 0, errorf(ErrNonConstantAccess, r.comp, p.Pos, "range start of `%s'", p)
	}
	end, err := p.Access.End.Concrete()
	if err != nil {
		return 0, 0, errorf(ErrNonConstantAccess, r.comp, p.Pos, "range end of `%s'", p)
	}
	if start > end {
		return 0, 0, errorf(ErrDimensionMismatch, r.comp, p.Pos, "empty range in `%s'", p)
	}
	return start, end, nil
}

func (r *rewriter) slice(names []core.Id, p core.Port, start, end uint64) ([]core.Id, error) {
	if end > uint64(len(names)) {
		return nil, errorf(ErrDimensionMismatch, r.comp, p.Pos,
			"`%s' reaches past length %d", p, len(names))
	}
	return names[start:end], nil
}

// callee maps an invocation to the component its instance instantiates.
func (r *rewriter) callee(p core.Port) (core.Id, error) {
	inst, ok := r.invs[p.Invoke]
	if !ok {
		return "", errorf(ErrUnknownInvocation, r.comp, p.Pos, "no invocation named `%s'", p.Invoke)
	}
	comp, ok := r.insts[inst]
	if !ok {
		return "", errorf(ErrUnknownInstance, r.comp, p.Pos, "no instance named `%s'", inst)
	}
	return comp, nil
}

func (r *rewriter) calleeBundle(callee core.Id, p core.Port) (*core.Bundle, error) {
	if sig, ok := r.sigs[callee]; ok {
		if pd, _, ok := sig.FindPort(p.Name); ok && pd.IsBundle() {
			return pd.Bundle, nil
		}
	}
	return nil, errorf(ErrUnknownBundle, r.comp, p.Pos, "`%s' has no bundle `%s'", callee, p.Name)
}
