package dag

import (
	"reflect"
	"testing"

	"filament/internal/core"
	"filament/internal/diag"
	"filament/internal/source"
)

func comp(name core.Id, callees ...core.Id) core.Component {
	var body []core.Command
	for i, c := range callees {
		body = append(body, core.InstanceCmd(core.Instance{
			Name:      core.Id("i" + string(rune('0'+i))),
			Component: c,
			Pos:       source.Span{File: 1, Start: uint32(i), End: uint32(i) + 1},
		}))
	}
	return core.Component{Sig: core.Signature{Name: name}, Body: body}
}

func build(t *testing.T, ns *core.Namespace) (Index, Graph, *Topo, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(16)
	nodes := Nodes(ns)
	idx := BuildIndex(nodes)
	g := BuildGraph(idx, nodes, diag.BagReporter{Bag: bag})
	topo := ToposortKahn(g)
	ReportCycles(idx, g, topo, diag.BagReporter{Bag: bag})
	return idx, g, topo, bag
}

func TestOrderPutsCalleesFirst(t *testing.T) {
	ns := &core.Namespace{
		Externs: []core.Extern{{Path: "prims.sv", Sigs: []core.Signature{{Name: "Add"}}}},
		Components: []core.Component{
			comp("Top", "Mid", "Add"),
			comp("Mid", "Add", "Add"),
			comp("Lone"),
		},
	}
	idx, g, topo, bag := build(t, ns)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if topo.Cyclic {
		t.Fatal("unexpected cycle")
	}
	want := [][]string{{"Add", "Lone"}, {"Mid"}, {"Top"}}
	got := make([][]string, len(topo.Batches))
	for i, b := range topo.Batches {
		got[i] = idx.Names(b)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("batches = %v, want %v", got, want)
	}
	if g.Indeg[idx.NameToID["Mid"]] != 1 {
		t.Fatal("duplicate uses must count once")
	}
	if !g.Nodes[idx.NameToID["Add"]].Extern {
		t.Fatal("Add should be an extern node")
	}
}

func TestCyclesAndBadUses(t *testing.T) {
	ns := &core.Namespace{Components: []core.Component{
		comp("A", "B"),
		comp("B", "A"),
		comp("C", "C", "Ghost"),
		comp("A"),
	}}
	idx, _, topo, bag := build(t, ns)
	if !topo.Cyclic || !reflect.DeepEqual(idx.Names(topo.Cycles), []string{"A", "B"}) {
		t.Fatalf("cycles = %v", idx.Names(topo.Cycles))
	}
	codes := map[diag.Code]int{}
	for _, d := range bag.Items() {
		codes[d.Code]++
	}
	if codes[diag.AlreadyBound] != 1 || codes[diag.Undefined] != 1 || codes[diag.InstanceCycle] != 3 {
		t.Fatalf("codes = %v", codes)
	}
}
