package ir

import (
	"errors"
	"testing"
)

// bundleComp builds a component with event 'G and a signature input bundle
// p[n]: for<#i> @['G+#i, 'G+#i+delay].
func bundleComp(t *testing.T, n, delay uint64) (*Component, PortIdx, ParamIdx, EventIdx) {
	t.Helper()
	c := NewComponent("C")
	g := c.AddEvent(Event{Delay: UnitDelay(c.Num(1)), Info: c.NewInfo("G", zeroSpan)})

	port := c.NextPort()
	idx := c.AddParam(Param{Owner: BundleParam(port), Info: c.NewInfo("i", zeroSpan)})
	i := idx.Expr(c)
	start := c.AddTime(Time{Event: g, Offset: i})
	end := c.AddTime(Time{Event: g, Offset: i.Add(c.Num(delay), c)})
	got := c.AddPort(Port{
		Owner: SigIn(),
		Width: c.Num(32),
		Live: Liveness{
			Idxs:  []ParamIdx{idx},
			Lens:  []ExprIdx{c.Num(n)},
			Range: Range{Start: start, End: end},
		},
		Info: c.NewInfo("p", zeroSpan),
	})
	if got != port {
		t.Fatalf("reserved port handle mismatch: got=%d want=%d", got, port)
	}
	return c, port, idx, g
}

func expectInternalError(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected an internal error")
		}
		err, ok := r.(error)
		var ie *InternalError
		if !ok || !errors.As(err, &ie) {
			t.Fatalf("expected *InternalError, got %T: %v", r, r)
		}
	}()
	f()
}

func TestInternedExprsShareHandles(t *testing.T) {
	c := NewComponent("C")
	a := c.Num(7)
	b := c.AddExpr(Concrete(7))
	if a != b {
		t.Fatalf("equal constants must share a handle: %d != %d", a, b)
	}
	one, ok := c.Exprs().Find(Concrete(1))
	if !ok || one != c.Num(1) {
		t.Fatalf("constant 1 must be discoverable by value")
	}
	if _, ok := c.Exprs().Find(Concrete(99)); ok {
		t.Fatalf("constant 99 was never interned")
	}
}

func TestUnitRangeAddBranch(t *testing.T) {
	c := NewComponent("C")
	p := c.AddParam(Param{Owner: LoopParam()})
	start := p.Expr(c)
	one := c.Num(1)

	if !UnitRange(c, start, c.AddExpr(Bin(OpAdd, start, one))) {
		t.Fatalf("start+1 must be a unit range")
	}
	if !UnitRange(c, start, c.AddExpr(Bin(OpAdd, one, start))) {
		t.Fatalf("1+start must be a unit range")
	}
	if UnitRange(c, start, c.AddExpr(Bin(OpAdd, start, c.Num(2)))) {
		t.Fatalf("start+2 is not a unit range")
	}
	if UnitRange(c, start, c.AddExpr(Bin(OpSub, start, one))) {
		t.Fatalf("start-1 is not a unit range")
	}
}

func TestUnitRangeConcreteBranch(t *testing.T) {
	c := NewComponent("C")
	if !UnitRange(c, c.Num(3), c.Num(4)) {
		t.Fatalf("[3, 4) must be a unit range")
	}
	if UnitRange(c, c.Num(3), c.Num(5)) {
		t.Fatalf("[3, 5) is not a unit range")
	}
	p := c.AddParam(Param{Owner: SigParam()})
	if UnitRange(c, p.Expr(c), c.Num(4)) {
		t.Fatalf("a constant end after a symbolic start is not provably unit")
	}
}

func TestUnitRangeUnrelatedEnd(t *testing.T) {
	c := NewComponent("C")
	a := c.AddParam(Param{Owner: SigParam()})
	b := c.AddParam(Param{Owner: SigParam()})
	if UnitRange(c, a.Expr(c), b.Expr(c).Add(c.Num(1), c)) {
		t.Fatalf("#b+1 is unrelated to #a")
	}
	if UnitRange(c, a.Expr(c), b.Expr(c)) {
		t.Fatalf("a bare parameter end is never a unit range")
	}
}

func TestUnitRangeMissingOne(t *testing.T) {
	c := &Component{Name: "Broken"}
	zero := c.AddExpr(Concrete(0))
	expectInternalError(t, func() {
		UnitRange(c, zero, zero)
	})
}

func TestIsPort(t *testing.T) {
	c, port, _, _ := bundleComp(t, 4, 2)
	if !UnitAccess(port, c).IsPort(c) {
		t.Fatalf("unit access must denote a single port")
	}
	a := Access{Port: port, Ranges: []IndexRange{{Start: c.Num(1), End: c.Num(3)}}}
	if a.IsPort(c) {
		t.Fatalf("[1, 3) denotes two ports")
	}
}

func TestBundleTypUnitAccess(t *testing.T) {
	const k = 2
	c, port, _, g := bundleComp(t, 8, 10)
	a := Access{Port: port, Ranges: []IndexRange{{Start: c.Num(k), End: c.Num(k + 1)}}}
	live := a.BundleTyp(c)

	wantStart := c.AddTime(Time{Event: g, Offset: c.Num(k)})
	wantEnd := c.AddTime(Time{Event: g, Offset: c.Num(k + 10)})
	if live.Range.Start != wantStart || live.Range.End != wantEnd {
		t.Fatalf("unexpected range: got=%s want=@['G+%d, 'G+%d]", c.RangeString(live.Range), k, k+10)
	}
	if n, ok := live.Lens[0].AsConcrete(c); !ok || n != 1 {
		t.Fatalf("unit access must have length 1, got %s", c.ExprString(live.Lens[0]))
	}
}

func TestBundleTypRangeAccessShiftsIndex(t *testing.T) {
	const a, b = 3, 7
	c, port, idx, _ := bundleComp(t, 8, 10)
	orig := c.Port(port).Live
	acc := Access{Port: port, Ranges: []IndexRange{{Start: c.Num(a), End: c.Num(b)}}}
	live := acc.BundleTyp(c)

	if n, ok := live.Lens[0].AsConcrete(c); !ok || n != b-a {
		t.Fatalf("unexpected length: got=%s want=%d", c.ExprString(live.Lens[0]), b-a)
	}
	for i := uint64(0); i < b-a; i++ {
		sliced := NewSubst(live.Range, NewBind(BindPair{Param: idx, Expr: c.Num(i)})).Apply(c)
		direct := NewSubst(orig.Range, NewBind(BindPair{Param: idx, Expr: c.Num(a + i)})).Apply(c)
		if sliced != direct {
			t.Fatalf("element %d: got=%s want=%s", i, c.RangeString(sliced), c.RangeString(direct))
		}
	}
}

func TestBundleTypSymbolicLength(t *testing.T) {
	c, port, _, _ := bundleComp(t, 8, 2)
	n := c.AddParam(Param{Owner: SigParam()})
	end := n.Expr(c)
	acc := Access{Port: port, Ranges: []IndexRange{{Start: c.Num(1), End: end}}}
	live := acc.BundleTyp(c)
	want := c.AddExpr(Bin(OpSub, end, c.Num(1)))
	if live.Lens[0] != want {
		t.Fatalf("length must be end - start: got=%s", c.ExprString(live.Lens[0]))
	}
}

// p[4]: for<i> @[i, i+2] accessed at [1, 3).
func TestBundleTypScenario(t *testing.T) {
	c, port, idx, g := bundleComp(t, 4, 2)
	acc := Access{Port: port, Ranges: []IndexRange{{Start: c.Num(1), End: c.Num(3)}}}
	live := acc.BundleTyp(c)

	if n, ok := live.Lens[0].AsConcrete(c); !ok || n != 2 {
		t.Fatalf("unexpected length: got=%s want=2", c.ExprString(live.Lens[0]))
	}
	first := NewSubst(live.Range, NewBind(BindPair{Param: idx, Expr: c.Num(0)})).Apply(c)
	want := Range{
		Start: c.AddTime(Time{Event: g, Offset: c.Num(1)}),
		End:   c.AddTime(Time{Event: g, Offset: c.Num(3)}),
	}
	if first != want {
		t.Fatalf("first element: got=%s want=%s", c.RangeString(first), c.RangeString(want))
	}

	unit := Access{Port: port, Ranges: []IndexRange{{Start: c.Num(1), End: c.Num(2)}}}
	if got := unit.BundleTyp(c).Range; got != want {
		t.Fatalf("p{1}: got=%s want=%s", c.RangeString(got), c.RangeString(want))
	}
}

func TestBundleTypDimensionMismatch(t *testing.T) {
	c, port, _, _ := bundleComp(t, 4, 2)
	acc := Access{Port: port, Ranges: []IndexRange{
		{Start: c.Num(0), End: c.Num(1)},
		{Start: c.Num(0), End: c.Num(1)},
	}}
	expectInternalError(t, func() {
		acc.BundleTyp(c)
	})
}

func TestLivenessFoldIsCaptureAvoiding(t *testing.T) {
	c, port, idx, _ := bundleComp(t, 4, 2)
	live := c.Port(port).Live
	folded := live.FoldWith(c, func(p ParamIdx) (ExprIdx, bool) {
		if p == idx {
			return c.Num(5), true
		}
		return NoExprIdx, false
	})
	if folded.Range != live.Range {
		t.Fatalf("bound index was substituted: %s", c.RangeString(folded.Range))
	}

	// A free parameter in the length is still substituted.
	n := c.AddParam(Param{Owner: SigParam()})
	live.Lens = []ExprIdx{n.Expr(c)}
	folded = NewSubst(live, NewBind(BindPair{Param: n, Expr: c.Num(6)})).Apply(c)
	if v, ok := folded.Lens[0].AsConcrete(c); !ok || v != 6 {
		t.Fatalf("free parameter not substituted: %s", c.ExprString(folded.Lens[0]))
	}
}

func TestPortOwnerPredicatesAreExclusive(t *testing.T) {
	base := NewForeign(PortIdx(1), CompIdx(1))
	owners := []PortOwner{SigIn(), SigOut(), InvIn(1, base), InvOut(1, base), LocalOwner()}
	for _, o := range owners {
		p := Port{Owner: o}
		count := 0
		for _, b := range []bool{p.IsSigIn(), p.IsSigOut(), p.IsInvIn(), p.IsInvOut(), p.IsLocal()} {
			if b {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("owner %s: %d predicates hold, want exactly 1", o, count)
		}
	}
	if !SigIn().IsSigIn() || SigIn().Dir != DirOut {
		t.Fatalf("signature inputs are stored with the reversed direction")
	}
}

func TestParamOwnerString(t *testing.T) {
	cases := map[string]ParamOwner{
		"sig":    SigParam(),
		"some":   ExistsParam(false),
		"opaque": ExistsParam(true),
		"loop":   LoopParam(),
		"port3":  BundleParam(3),
		"inst2":  InstanceParam(2, NewForeign(ParamIdx(1), CompIdx(1))),
	}
	for want, o := range cases {
		if got := o.String(); got != want {
			t.Fatalf("unexpected owner string: got=%q want=%q", got, want)
		}
	}
}

func TestLookupUnknownHandle(t *testing.T) {
	c := NewComponent("C")
	expectInternalError(t, func() {
		c.Port(PortIdx(42))
	})
	expectInternalError(t, func() {
		c.Expr(NoExprIdx)
	})
}
