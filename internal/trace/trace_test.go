package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"off", "error", "phase", "detail", "DEBUG"} {
		l, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if !strings.EqualFold(l.String(), s) {
			t.Fatalf("%s round-tripped to %s", s, l)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLevelScopes(t *testing.T) {
	if !LevelPhase.ShouldEmit(ScopePass) || LevelPhase.ShouldEmit(ScopeModule) {
		t.Fatal("phase should stop at pass scope")
	}
	if !LevelDetail.ShouldEmit(ScopeModule) || LevelDetail.ShouldEmit(ScopeNode) {
		t.Fatal("detail should stop at module scope")
	}
	if LevelError.ShouldEmit(ScopeDriver) {
		t.Fatal("error level streams nothing")
	}
}

func TestStreamText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	root := Begin(tr, ScopePass, "bundle_elim", 0)
	child := Begin(tr, ScopeModule, "component:Main", root.ID())
	Begin(tr, ScopeNode, "filtered", child.ID()).End("")
	child.WithExtra("commands", "3").End("")
	root.End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "[pass]   → bundle_elim") {
		t.Fatalf("line 0: %q", lines[0])
	}
	if !strings.Contains(lines[2], "← component:Main {commands=3, dur=") {
		t.Fatalf("line 2: %q", lines[2])
	}
	if !strings.Contains(lines[3], "← bundle_elim (done)") {
		t.Fatalf("line 3: %q", lines[3])
	}
}

func TestStreamNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	Point(tr, ScopeDriver, "load", "prog.msgpack", 0)
	var ev jsonEvent
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if ev.Kind != "point" || ev.Name != "load" || ev.Detail != "prog.msgpack" {
		t.Fatalf("unexpected %+v", ev)
	}
}

func TestRingKeepsNewest(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(r, ScopeNode, name, "", 0)
	}
	snap := r.Snapshot()
	var names []string
	for _, ev := range snap {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ""); got != "cde" {
		t.Fatalf("got %s", got)
	}
}

func TestNewErrorLevelRecordsOnlyInRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelError, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeModule, "component:Main", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("error level streamed %q", buf.String())
	}
	ring, ok := Ring(tr)
	if !ok {
		t.Fatal("no ring")
	}
	var dump bytes.Buffer
	if err := ring.Dump(&dump, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dump.String(), "component:Main") {
		t.Fatalf("dump %q", dump.String())
	}
}

func TestNewOff(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("got %v, %v", tr, err)
	}
	if s := Begin(tr, ScopeDriver, "x", 7); s.ID() != 7 {
		t.Fatalf("filtered span should report its parent, got %d", s.ID())
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context should yield Nop")
	}
	r := NewRingTracer(1, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatal("tracer not stored")
	}
	ctx = WithSpanContext(ctx, SpanContext{SpanID: 9})
	if CurrentSpan(ctx).SpanID != 9 {
		t.Fatal("span context not stored")
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Begin(tr, ScopeModule, "c", 0).End("")
		}()
	}
	wg.Wait()
	if n := strings.Count(buf.String(), "\n"); n != 16 {
		t.Fatalf("got %d lines", n)
	}
}
