// Package dag orders the components of a program by instantiation: a
// component comes after every component it instantiates.
package dag

import (
	"slices"

	"fortio.org/safecast"

	"filament/internal/core"
	"filament/internal/source"
)

type CompID uint32

// Use is one instantiation of Callee inside a component body.
type Use struct {
	Callee core.Id
	Pos    source.Span
}

// Node is a component or extern signature with the components it uses.
type Node struct {
	Name   core.Id
	Pos    source.Span
	Extern bool
	Uses   []Use
}

// Nodes lists externs first and then components, in program order.
func Nodes(ns *core.Namespace) []Node {
	var out []Node
	for _, ext := range ns.Externs {
		for _, sig := range ext.Sigs {
			out = append(out, Node{Name: sig.Name, Pos: sig.Pos, Extern: true})
		}
	}
	for _, comp := range ns.Components {
		n := Node{Name: comp.Sig.Name, Pos: comp.Sig.Pos}
		core.Walk(comp.Body, func(c core.Command) {
			if c.Kind == core.CmdInstance {
				n.Uses = append(n.Uses, Use{Callee: c.Instance.Component, Pos: c.Instance.Pos})
			}
		})
		out = append(out, n)
	}
	return out
}

// Index numbers every defined name in sorted order.
type Index struct {
	NameToID map[core.Id]CompID
	IDToName []core.Id
}

func BuildIndex(nodes []Node) Index {
	names := make([]core.Id, 0, len(nodes))
	seen := make(map[core.Id]struct{}, len(nodes))
	for _, n := range nodes {
		if _, dup := seen[n.Name]; dup || n.Name == "" {
			continue
		}
		seen[n.Name] = struct{}{}
		names = append(names, n.Name)
	}
	slices.Sort(names)

	idx := Index{NameToID: make(map[core.Id]CompID, len(names)), IDToName: names}
	for i, name := range names {
		id, err := safecast.Conv[CompID](i)
		if err != nil {
			panic(err)
		}
		idx.NameToID[name] = id
	}
	return idx
}
