package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filament/internal/core"
	"filament/internal/source"
)

func writeProgram(t *testing.T, dir string) string {
	t.Helper()
	i := core.Abstract("i")
	p := core.Bundle{Name: "p", Typ: core.BundleType{
		Idx:      "i",
		Len:      core.Concrete(2),
		Liveness: core.NewRange(core.At("G", i), core.At("G", i.Add(core.Concrete(1)))),
		Bitwidth: core.Concrete(8),
	}}
	ns := &core.Namespace{Components: []core.Component{{
		Sig: core.Signature{
			Name:    "Main",
			Events:  []core.EventBind{{Event: "G", Delay: core.UnitDelay(core.Concrete(1))}},
			Inputs:  []core.PortDef{core.BundlePortDef(p)},
			Outputs: []core.PortDef{core.ScalarPort("out", core.NewRange(core.Start("G"), core.At("G", core.Concrete(1))), core.Concrete(8), source.Span{})},
		},
		Body: []core.Command{core.Connection(core.This("out"), core.BundlePort("p", core.Index(core.Concrete(0))))},
	}}}
	data, err := core.Marshal(ns)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "main.mp")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLowerCommandWritesText(t *testing.T) {
	dir := t.TempDir()
	in := writeProgram(t, dir)
	out := filepath.Join(dir, "main.txt")

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"lower", in, "-o", out, "--no-cache", "--color", "off"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("lower: %v\n%s", err, stderr.String())
	}
	text, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"comp Main<'G: 1>(p_0: @['G, 'G+1] 8, p_1: @['G+1, 'G+2] 8)", "p{0} = this.p_0;", "this.out = p{0};"} {
		if !strings.Contains(string(text), want) {
			t.Errorf("missing %q in\n%s", want, text)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"version", "--format", "json"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		t.Fatalf("output %q: %v", stdout.String(), err)
	}
	if payload.Tool != "filament" || payload.Version == "" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestTriState(t *testing.T) {
	cases := []struct {
		mode string
		tty  bool
		want bool
	}{
		{"auto", true, true},
		{"auto", false, false},
		{"on", false, true},
		{"off", true, false},
	}
	for _, tc := range cases {
		got, err := triState("color", tc.mode, tc.tty)
		if err != nil || got != tc.want {
			t.Errorf("triState(%q, %v) = %v, %v", tc.mode, tc.tty, got, err)
		}
	}
	if _, err := triState("progress", "always", true); err == nil || !strings.Contains(err.Error(), "--progress") {
		t.Fatalf("err = %v", err)
	}
}

func TestMemProfileFlag(t *testing.T) {
	mem := filepath.Join(t.TempDir(), "mem.pprof")
	t.Cleanup(func() { _ = rootCmd.PersistentFlags().Set("memprofile", "") })

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"version", "--memprofile", mem})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if err := profiling.Stop(); err != nil {
		t.Fatal(err)
	}
	if st, err := os.Stat(mem); err != nil || st.Size() == 0 {
		t.Fatalf("heap profile not written: %v", err)
	}
}

func TestLowerGarbageShortDiagnostics(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.mp")
	if err := os.WriteFile(in, []byte("not msgpack"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = rootCmd.PersistentFlags().Set("diag-format", "pretty") })

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"lower", in, "--no-cache", "--diag-format", "short"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected decode failure")
	}
	if !strings.HasPrefix(stderr.String(), "error IO3001 ") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
