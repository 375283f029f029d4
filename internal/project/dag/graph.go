package dag

import (
	"fmt"
	"slices"
	"strings"

	"filament/internal/diag"
)

// Graph has an edge callee -> user for every instantiation.
type Graph struct {
	Edges [][]CompID
	Indeg []int
	Nodes []Node // by CompID; the first definition wins
}

// BuildGraph links every use to its callee. Duplicate definitions, unknown
// callees and self-instantiation are reported to r and left out.
func BuildGraph(idx Index, nodes []Node, r diag.Reporter) Graph {
	n := len(idx.IDToName)
	g := Graph{
		Edges: make([][]CompID, n),
		Indeg: make([]int, n),
		Nodes: make([]Node, n),
	}
	defined := make([]bool, n)
	for _, node := range nodes {
		id, ok := idx.NameToID[node.Name]
		if !ok {
			continue
		}
		if defined[id] {
			report(r, diag.NameBound("component", string(node.Name), node.Pos, g.Nodes[id].Pos))
			continue
		}
		defined[id] = true
		g.Nodes[id] = node
	}

	for user := range g.Nodes {
		seen := make(map[CompID]struct{})
		for _, use := range g.Nodes[user].Uses {
			callee, ok := idx.NameToID[use.Callee]
			if !ok {
				report(r, diag.UndefinedName("component", string(use.Callee), use.Pos))
				continue
			}
			if int(callee) == user {
				report(r, diag.NewError(diag.InstanceCycle, use.Pos,
					fmt.Sprintf("component `%s' instantiates itself", use.Callee)))
				continue
			}
			if _, dup := seen[callee]; dup {
				continue
			}
			seen[callee] = struct{}{}
			g.Edges[callee] = append(g.Edges[callee], CompID(user))
			g.Indeg[user]++
		}
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g
}

// ReportCycles reports every component left in a cycle by ToposortKahn.
func ReportCycles(idx Index, g Graph, topo *Topo, r diag.Reporter) {
	if !topo.Cyclic {
		return
	}
	names := make([]string, len(topo.Cycles))
	for i, id := range topo.Cycles {
		names[i] = string(idx.IDToName[id])
	}
	summary := strings.Join(names, ", ")
	for _, id := range topo.Cycles {
		node := g.Nodes[id]
		report(r, diag.NewError(diag.InstanceCycle, node.Pos,
			fmt.Sprintf("component `%s' is part of an instantiation cycle: %s", node.Name, summary)))
	}
}

func report(r diag.Reporter, d diag.Diagnostic) {
	if r != nil {
		r.Report(d)
	}
}
