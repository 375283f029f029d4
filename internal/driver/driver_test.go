package driver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"filament/internal/core"
	"filament/internal/diag"
	"filament/internal/ir"
	"filament/internal/passes"
	"filament/internal/source"
	"filament/internal/testkit"
	"filament/internal/trace"
)

var noPos source.Span

// program has one component whose input is a four element bundle.
func program(length core.Expr) *core.Namespace {
	i := core.Abstract("i")
	p := core.Bundle{Name: "p", Typ: core.BundleType{
		Idx:      "i",
		Len:      length,
		Liveness: core.NewRange(core.At("G", i), core.At("G", i.Add(core.Concrete(1)))),
		Bitwidth: core.Concrete(8),
	}}
	out := core.ScalarPort("out", core.NewRange(core.At("G", core.Concrete(3)), core.At("G", core.Concrete(4))), core.Concrete(8), noPos)
	return &core.Namespace{Components: []core.Component{{
		Sig: core.Signature{
			Name:    "Main",
			Params:  []core.ParamBind{{Name: "N"}},
			Events:  []core.EventBind{{Event: "G", Delay: core.UnitDelay(core.Concrete(1))}},
			Inputs:  []core.PortDef{core.BundlePortDef(p)},
			Outputs: []core.PortDef{out},
		},
		Body: []core.Command{
			core.Connection(core.This("out"), core.BundlePort("p", core.Index(core.Concrete(3)))),
		},
	}}}
}

func encode(t *testing.T, ns *core.Namespace) []byte {
	t.Helper()
	data, err := core.Marshal(ns)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestLowerBuildsAndCaches(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	input := encode(t, program(core.Concrete(4)))
	opts := Options{Jobs: 2, Validate: true, BuildIR: true, Cache: cache}

	res, err := Lower(context.Background(), input, opts)
	if err != nil {
		t.Fatalf("Lower: %v (%v)", err, res.Diags.Err())
	}
	if res.Cached {
		t.Fatal("first run hit the cache")
	}
	sig := res.Program.Components[0].Sig
	if len(sig.Inputs) != 4 || sig.Inputs[0].IsBundle() {
		t.Fatalf("inputs not lowered: %+v", sig.Inputs)
	}
	if res.IR == nil || res.IR.Len() != 1 {
		t.Fatal("IR not built")
	}
	if err := testkit.CheckIR(res.IR); err != nil {
		t.Fatalf("malformed IR:\n%v", err)
	}
	if len(res.Timings.Phases) != 4 {
		t.Fatalf("got=%d phases want=4", len(res.Timings.Phases))
	}

	again, err := Lower(context.Background(), input, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Cached || again.Key != res.Key {
		t.Fatalf("second run: cached=%v", again.Cached)
	}
	if got, want := again.Program.Components[0].String(), res.Program.Components[0].String(); got != want {
		t.Fatalf("cached program differs:\n%s\nvs\n%s", got, want)
	}
}

func TestLowerRejectsGarbage(t *testing.T) {
	res, err := Lower(context.Background(), []byte("not msgpack"), Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Program != nil || res.Diags.Len() != 1 || res.Diags.Items()[0].Code != diag.InvalidFile {
		t.Fatalf("diags = %v", res.Diags.Items())
	}
}

func TestLowerReportsPassErrors(t *testing.T) {
	res, err := Lower(context.Background(), encode(t, program(core.Abstract("N"))), Options{Validate: true})
	if !passes.IsKind(err, passes.ErrNonConstantLength) {
		t.Fatalf("err = %v", err)
	}
	if !res.Diags.HasErrors() || !strings.Contains(res.Diags.Items()[0].Message, "Main") {
		t.Fatalf("diags = %v", res.Diags.Items())
	}
}

func TestInternalErrorDumpsTraceRing(t *testing.T) {
	tracer, err := trace.New(trace.Config{Level: trace.LevelPhase, Output: io.Discard, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	ctx := trace.WithTracer(context.Background(), tracer)
	trace.Begin(tracer, trace.ScopePass, "bundle_elim", 0).End("")

	res := &Result{Diags: diag.NewBag(4), Program: &core.Namespace{}}
	var dump bytes.Buffer
	cause := &ir.InternalError{Component: "Main", Msg: "unknown port 7"}
	err = internal(ctx, res, cause, &dump)

	var ie *ir.InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v", err)
	}
	if res.Program != nil {
		t.Fatal("partial program kept")
	}
	if !strings.Contains(dump.String(), "bundle_elim") {
		t.Fatalf("dump = %q", dump.String())
	}
}

func TestCacheMiss(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	res, _ := Lower(context.Background(), encode(t, program(core.Concrete(2))), Options{})
	if _, ok, err := cache.Get(res.Key); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	var nilCache *DiskCache
	if err := nilCache.Put(res.Key, res.Program); err != nil {
		t.Fatal(err)
	}
}
