package passes

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"filament/internal/core"
	"filament/internal/source"
)

var zeroPos source.Span

func goRange(lo, hi uint64) core.Range {
	return core.NewRange(core.At("G", core.Concrete(lo)), core.At("G", core.Concrete(hi)))
}

// shifted is @['G+#idx+lo, 'G+#idx+hi].
func shifted(idx core.Id, lo, hi uint64) core.Range {
	i := core.Abstract(idx)
	return core.NewRange(core.At("G", i.Add(core.Concrete(lo))), core.At("G", i.Add(core.Concrete(hi))))
}

func bundleDef(name, idx core.Id, n core.Expr, live core.Range) core.PortDef {
	return core.BundlePortDef(core.Bundle{
		Name: name,
		Typ:  core.BundleType{Idx: idx, Len: n, Liveness: live, Bitwidth: core.Concrete(32)},
	})
}

func sig(name core.Id, inputs, outputs []core.PortDef) core.Signature {
	return core.Signature{
		Name:    name,
		Events:  []core.EventBind{{Event: "G", Delay: core.UnitDelay(core.Concrete(1))}},
		Inputs:  inputs,
		Outputs: outputs,
	}
}

func invoke(name, inst core.Id, ports ...core.Port) core.Command {
	return core.InvokeCmd(core.Invoke{
		Name:         name,
		Instance:     inst,
		AbstractVars: []core.Time{core.Start("G")},
		Ports:        ports,
	})
}

func inst(name, comp core.Id) core.Command {
	return core.InstanceCmd(core.Instance{Name: name, Component: comp})
}

func scenario() core.Component {
	return core.Component{
		Sig:  sig("C", []core.PortDef{bundleDef("p", "i", core.Concrete(4), shifted("i", 0, 2))}, nil),
		Body: []core.Command{
			core.Connection(core.This("unused"), core.ConstantPort(0)),
		},
	}
}

func program() *core.Namespace {
	sum := core.Component{Sig: sig("Sum",
		[]core.PortDef{bundleDef("x", "k", core.Concrete(3), shifted("k", 0, 1))},
		[]core.PortDef{core.ScalarPort("out", goRange(1, 2), core.Concrete(32), zeroPos)},
	)}
	pair := core.Component{Sig: sig("Pair", nil,
		[]core.PortDef{bundleDef("y", "j", core.Concrete(2), shifted("j", 1, 2))},
	)}
	top := core.Component{
		Sig: sig("Top",
			[]core.PortDef{
				bundleDef("q", "i", core.Concrete(4), shifted("i", 0, 1)),
				core.ScalarPort("z", goRange(0, 1), core.Concrete(32), zeroPos),
			},
			[]core.PortDef{core.ScalarPort("o", goRange(1, 2), core.Concrete(32), zeroPos)},
		),
		Body: []core.Command{
			core.BundleCmd(core.Bundle{Name: "l", Typ: core.BundleType{
				Idx: "m", Len: core.Concrete(3), Liveness: shifted("m", 0, 1), Bitwidth: core.Concrete(32),
			}}),
			inst("P", "Pair"),
			inst("S", "Sum"),
			invoke("p", "P"),
			invoke("s0", "S", core.BundlePort("q", core.Slice(core.Concrete(1), core.Concrete(4)))),
			invoke("s1", "S", core.BundlePort("l", core.Slice(core.Concrete(0), core.Concrete(2))), core.This("z")),
			invoke("s2", "S", core.InvBundle("p", "y", core.Slice(core.Concrete(0), core.Concrete(2))), core.This("z")),
			core.Connection(core.This("o"), core.InvBundle("p", "y", core.Index(core.Concrete(1)))),
		},
	}
	// Top comes before its callees on purpose.
	return &core.Namespace{Components: []core.Component{top, sum, pair}}
}

func run(t *testing.T, ns *core.Namespace, jobs int) *core.Namespace {
	t.Helper()
	out, err := BundleElim(context.Background(), ns, Options{Jobs: jobs})
	if err != nil {
		t.Fatalf("BundleElim: %v", err)
	}
	return out
}

func findInvoke(t *testing.T, body []core.Command, name core.Id) *core.Invoke {
	t.Helper()
	for _, c := range body {
		if c.Kind == core.CmdInvoke && c.Invoke.Name == name {
			return c.Invoke
		}
	}
	t.Fatalf("no invocation %s", name)
	return nil
}

func portStrings(ps []core.Port) string {
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = p.String()
	}
	return strings.Join(s, ", ")
}

func TestScenarioInputBundle(t *testing.T) {
	ns := &core.Namespace{Components: []core.Component{scenario()}}
	out := run(t, ns, 1)
	c := out.Components[0]

	if len(c.Sig.Inputs) != 4 {
		t.Fatalf("inputs: got=%d want=4", len(c.Sig.Inputs))
	}
	for i, pd := range c.Sig.Inputs {
		want := core.Id("p_" + string(rune('0'+i)))
		if pd.IsBundle() || pd.Name != want {
			t.Fatalf("input %d: got=%s want=%s", i, pd.PortName(), want)
		}
		if r := goRange(uint64(i), uint64(i)+2); !pd.Liveness.Equal(r) {
			t.Fatalf("input %d: got=%s want=%s", i, pd.Liveness, r)
		}
	}

	if len(c.Body) != 6 {
		t.Fatalf("body: got=%d want=6", len(c.Body))
	}
	if c.Body[0].Kind != core.CmdBundle || c.Body[0].Bundle.Name != "p" {
		t.Fatalf("first command should declare bundle p, got %s", c.Body[0].Kind)
	}
	for i := range 4 {
		con := c.Body[i+1].Connect
		want := core.Connection(
			core.BundlePort("p", core.Index(core.Concrete(uint64(i)))),
			core.This(core.Id("p_"+string(rune('0'+i)))),
		).Connect
		if con == nil || !con.Dst.Equal(want.Dst) || !con.Src.Equal(want.Src) {
			t.Fatalf("connect %d: got %v", i, c.Body[i+1])
		}
	}
	if !c.Body[5].Connect.Dst.Equal(core.This("unused")) {
		t.Fatal("original body must follow the generated wiring")
	}
	if len(ns.Components[0].Sig.Inputs) != 1 {
		t.Fatal("input namespace was modified")
	}
}

func TestOutputBundleWiredAfterBody(t *testing.T) {
	out := run(t, program(), 1)
	pair := out.Components[2]
	if pair.Sig.Name != "Pair" {
		t.Fatalf("component order changed: %s", pair.Sig.Name)
	}
	if len(pair.Sig.Outputs) != 2 {
		t.Fatalf("outputs: got=%d want=2", len(pair.Sig.Outputs))
	}
	if !pair.Sig.Outputs[1].Liveness.Equal(goRange(2, 3)) {
		t.Fatalf("y_1 liveness %s", pair.Sig.Outputs[1].Liveness)
	}
	last := pair.Body[len(pair.Body)-1].Connect
	if last == nil || !last.Dst.Equal(core.This("y_1")) || !last.Src.Equal(core.BundlePort("y", core.Index(core.Concrete(1)))) {
		t.Fatalf("last command %v", pair.Body[len(pair.Body)-1])
	}
}

func TestSplatting(t *testing.T) {
	out := run(t, program(), 1)
	top := out.Components[0]

	cases := []struct {
		inv  core.Id
		want string
	}{
		{"s0", "this.q_1, this.q_2, this.q_3"},
		{"s1", "l{0}, l{1}, this.z"},
		{"s2", "p.y_0, p.y_1, this.z"},
	}
	for _, tc := range cases {
		got := portStrings(findInvoke(t, top.Body, tc.inv).Ports)
		if got != tc.want {
			t.Errorf("%s: got=%q want=%q", tc.inv, got, tc.want)
		}
	}

	last := top.Body[len(top.Body)-1].Connect
	if last == nil || last.Src.String() != "p.y_1" {
		t.Fatalf("index access into lowered callee bundle not rewritten: %v", top.Body[len(top.Body)-1])
	}
	if err := ValidateNoSigBundles(out); err != nil {
		t.Fatalf("ValidateNoSigBundles: %v", err)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	var seq, par bytes.Buffer
	if err := core.Print(&seq, run(t, program(), 1)); err != nil {
		t.Fatal(err)
	}
	if err := core.Print(&par, run(t, program(), 8)); err != nil {
		t.Fatal(err)
	}
	if seq.String() != par.String() {
		t.Fatalf("parallel output differs:\n%s\nvs\n%s", seq.String(), par.String())
	}
}

func TestExternsUntouched(t *testing.T) {
	ext := sig("Reg", []core.PortDef{bundleDef("d", "i", core.Concrete(2), shifted("i", 0, 1))}, nil)
	ns := &core.Namespace{
		Externs:    []core.Extern{{Path: "reg.sv", Sigs: []core.Signature{ext}}},
		Components: []core.Component{{
			Sig:  sig("Main", []core.PortDef{bundleDef("a", "i", core.Concrete(2), shifted("i", 0, 1))}, nil),
			Body: []core.Command{
				inst("R", "Reg"),
				invoke("r", "R", core.BundlePort("a", core.Slice(core.Concrete(0), core.Concrete(2)))),
				invoke("r2", "R", core.InvBundle("r", "d", core.Slice(core.Concrete(0), core.Concrete(2)))),
			},
		}},
	}
	out := run(t, ns, 1)
	if !out.Externs[0].Sigs[0].Inputs[0].IsBundle() {
		t.Fatal("extern signature was lowered")
	}
	body := out.Components[0].Body
	if got := portStrings(findInvoke(t, body, "r").Ports); got != "this.a_0, this.a_1" {
		t.Fatalf("r: %s", got)
	}
	if got := portStrings(findInvoke(t, body, "r2").Ports); got != "r.d{0}, r.d{1}" {
		t.Fatalf("r2: %s", got)
	}
}

func TestNestedCommandsAreRewritten(t *testing.T) {
	top := program()
	body := top.Components[0].Body
	loop := core.ForLoopCmd(core.ForLoop{
		Idx:   "n",
		Start: core.Concrete(0),
		End:   core.Concrete(2),
		Body:  []core.Command{core.IfCmd(core.If{
			Cond: core.OrderConstraint{Left: core.Abstract("n"), Right: core.Concrete(0), Op: core.OrderGt},
			Then: []core.Command{invoke("s3", "S", core.BundlePort("q", core.Slice(core.Concrete(0), core.Concrete(2))))},
		})},
	})
	top.Components[0].Body = append(body, loop)

	out := run(t, top, 2)
	b := out.Components[0].Body
	inner := b[len(b)-1].ForLoop.Body[0].If.Then
	if got := portStrings(findInvoke(t, inner, "s3").Ports); got != "this.q_0, this.q_1" {
		t.Fatalf("s3: %s", got)
	}
}

func TestBundleElimErrors(t *testing.T) {
	cases := []struct {
		name string
		edit func(ns *core.Namespace)
		kind ErrorKind
	}{
		{
			name: "non-constant length",
			edit: func(ns *core.Namespace) {
				ns.Components[1].Sig.Inputs[0].Bundle.Typ.Len = core.Abstract("N")
			},
			kind: ErrNonConstantLength,
		},
		{
			name: "unknown invocation",
			edit: func(ns *core.Namespace) {
				ns.Components[0].Body = append(ns.Components[0].Body,
					invoke("s9", "S", core.InvBundle("ghost", "y", core.Slice(core.Concrete(0), core.Concrete(2)))))
			},
			kind: ErrUnknownInvocation,
		},
		{
			name: "unknown instance",
			edit: func(ns *core.Namespace) {
				ns.Components[0].Body = append(ns.Components[0].Body,
					invoke("g", "Ghost"),
					invoke("s9", "S", core.InvBundle("g", "y", core.Slice(core.Concrete(0), core.Concrete(2)))))
			},
			kind: ErrUnknownInstance,
		},
		{
			name: "unknown bundle",
			edit: func(ns *core.Namespace) {
				ns.Components[0].Body = append(ns.Components[0].Body,
					invoke("s9", "S", core.InvBundle("p", "nope", core.Slice(core.Concrete(0), core.Concrete(2)))))
			},
			kind: ErrUnknownBundle,
		},
		{
			name: "splat on write side",
			edit: func(ns *core.Namespace) {
				ns.Components[0].Body = append(ns.Components[0].Body, core.Connection(
					core.InvBundle("s0", "x", core.Slice(core.Concrete(0), core.Concrete(2))),
					core.This("z"),
				))
			},
			kind: ErrUnimplemented,
		},
		{
			name: "symbolic range",
			edit: func(ns *core.Namespace) {
				ns.Components[0].Body = append(ns.Components[0].Body,
					invoke("s9", "S", core.BundlePort("q", core.Slice(core.Abstract("a"), core.Concrete(2)))))
			},
			kind: ErrNonConstantAccess,
		},
		{
			name: "past the end",
			edit: func(ns *core.Namespace) {
				ns.Components[0].Body = append(ns.Components[0].Body,
					invoke("s9", "S", core.BundlePort("q", core.Slice(core.Concrete(2), core.Concrete(6)))))
			},
			kind: ErrDimensionMismatch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ns := program()
			tc.edit(ns)
			_, err := BundleElim(context.Background(), ns, Options{Jobs: 1})
			if !IsKind(err, tc.kind) {
				t.Fatalf("got=%v want kind %s", err, tc.kind)
			}
		})
	}
}

func TestValidateNoSigBundlesRejectsInput(t *testing.T) {
	err := ValidateNoSigBundles(program())
	if err == nil {
		t.Fatal("expected error for unlowered program")
	}
	for _, want := range []string{"`Top' still declares bundle `q'", "`Sum' still declares bundle `x'", "range `q{1..4}'"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestSymbolicIndexIntoLoweredCalleeIsKept(t *testing.T) {
	ns := program()
	body := ns.Components[0].Body
	access := core.InvBundle("p", "y", core.Index(core.Abstract("n")))
	loop := core.ForLoopCmd(core.ForLoop{
		Idx:   "n",
		Start: core.Concrete(0),
		End:   core.Concrete(2),
		Body:  []core.Command{core.Connection(core.This("o"), access)},
	})
	ns.Components[0].Body = append(body, loop)

	out := run(t, ns, 1)
	b := out.Components[0].Body
	conn := b[len(b)-1].ForLoop.Body[0].Connect
	if conn == nil || !conn.Src.Equal(access) {
		t.Fatalf("symbolic index access rewritten: %v", b[len(b)-1].ForLoop.Body[0])
	}
	if err := ValidateNoSigBundles(out); err != nil {
		t.Fatalf("ValidateNoSigBundles: %v", err)
	}
}
