// Package testkit holds structural checks shared by the tests of the
// lowering stages.
package testkit

import (
	"errors"
	"fmt"

	"filament/internal/ir"
)

// CheckIR verifies the structural invariants of every component in ctx:
//  1. bundle index parameters are owned by the port that binds them
//  2. every liveness has one length per index parameter
//  3. invocation ports belong to their invocation and mirror a callee
//     signature port
//  4. instances pass one argument per callee signature parameter
//  5. accesses have one range per dimension of the accessed port
//
// All violations are reported, joined into one error.
func CheckIR(ctx *ir.Context) error {
	if ctx == nil {
		return errors.New("nil context")
	}
	var errs []error
	for idx, c := range ctx.Components() {
		chk := &checker{ctx: ctx, c: c}
		chk.ports()
		chk.instances()
		chk.invokes(idx)
		chk.commands(c.Cmds)
		errs = append(errs, chk.errs...)
	}
	return errors.Join(errs...)
}

type checker struct {
	ctx  *ir.Context
	c    *ir.Component
	errs []error
}

func (k *checker) failf(format string, args ...any) {
	k.errs = append(k.errs, fmt.Errorf("%s: "+format, append([]any{k.c.Name}, args...)...))
}

func (k *checker) ports() {
	for pidx, p := range k.c.Ports().All() {
		if len(p.Live.Idxs) != len(p.Live.Lens) {
			k.failf("port%d has %d index params but %d lengths", pidx, len(p.Live.Idxs), len(p.Live.Lens))
		}
		for _, pi := range p.Live.Idxs {
			param, ok := k.c.Params().Lookup(pi)
			if !ok {
				k.failf("port%d binds unknown param%d", pidx, pi)
				continue
			}
			if param.Owner.Kind != ir.ParamBundle || param.Owner.Port != pidx {
				k.failf("port%d binds param%d owned by %s", pidx, pi, param.Owner)
			}
		}
		if p.IsInv() {
			k.foreignSigPort(pidx, p.Owner.Base)
		}
	}
}

func (k *checker) foreignSigPort(pidx ir.PortIdx, base ir.Foreign[ir.PortIdx]) {
	callee, ok := k.component(base.Owner)
	if !ok {
		k.failf("port%d mirrors a port of unknown component %d", pidx, base.Owner)
		return
	}
	bp, ok := callee.Ports().Lookup(base.Key)
	if !ok || !bp.IsSig() {
		k.failf("port%d mirrors %s.port%d which is not a signature port", pidx, callee.Name, base.Key)
	}
}

func (k *checker) component(idx ir.CompIdx) (*ir.Component, bool) {
	for ci, c := range k.ctx.Components() {
		if ci == idx {
			return c, true
		}
	}
	return nil, false
}

func (k *checker) instances() {
	for iidx, inst := range k.c.Instances().All() {
		callee, ok := k.component(inst.Comp)
		if !ok {
			k.failf("inst%d instantiates unknown component %d", iidx, inst.Comp)
			continue
		}
		if want := len(callee.SigParams()); len(inst.Params) != want {
			k.failf("inst%d passes %d params to %s which takes %d", iidx, len(inst.Params), callee.Name, want)
		}
	}
}

func (k *checker) invokes(self ir.CompIdx) {
	for vidx, inv := range k.c.Invokes().All() {
		inst, ok := k.c.Instances().Lookup(inv.Inst)
		if !ok {
			k.failf("inv%d uses unknown inst%d", vidx, inv.Inst)
			continue
		}
		if inst.Comp == self {
			k.failf("inv%d invokes its own component", vidx)
		}
		for _, pidx := range inv.Ports {
			p, ok := k.c.Ports().Lookup(pidx)
			if !ok {
				k.failf("inv%d lists unknown port%d", vidx, pidx)
				continue
			}
			if !p.IsInv() || p.Owner.Inv != vidx {
				k.failf("inv%d lists port%d owned by %s", vidx, pidx, p.Owner)
			}
			if p.IsInv() && p.Owner.Base.Owner != inst.Comp {
				k.failf("inv%d port%d mirrors component %d, not the instantiated %d", vidx, pidx, p.Owner.Base.Owner, inst.Comp)
			}
		}
	}
}

func (k *checker) commands(cmds []ir.Command) {
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case *ir.Connect:
			k.access(cmd.Dst)
			k.access(cmd.Src)
		case *ir.Loop:
			if p, ok := k.c.Params().Lookup(cmd.Index); !ok || !p.IsLocal() {
				k.failf("loop index param%d is not a loop parameter", cmd.Index)
			}
			k.commands(cmd.Body)
		case *ir.If:
			k.commands(cmd.Then)
			k.commands(cmd.Alt)
		case *ir.BundleDef:
			if p, ok := k.c.Ports().Lookup(cmd.Port); !ok || !p.IsLocal() {
				k.failf("bundle definition of non-local port%d", cmd.Port)
			}
		case *ir.InstCmd:
			if !k.c.Instances().Has(cmd.Inst) {
				k.failf("declaration of unknown inst%d", cmd.Inst)
			}
		case *ir.InvCmd:
			if !k.c.Invokes().Has(cmd.Inv) {
				k.failf("declaration of unknown inv%d", cmd.Inv)
			}
		}
	}
}

func (k *checker) access(a ir.Access) {
	p, ok := k.c.Ports().Lookup(a.Port)
	if !ok {
		k.failf("access to unknown port%d", a.Port)
		return
	}
	if len(a.Ranges) != p.Live.Dims() {
		k.failf("access to port%d has %d ranges for %d dimensions", a.Port, len(a.Ranges), p.Live.Dims())
	}
}
