package dag

import "slices"

// Topo is a Kahn ordering of a Graph.
type Topo struct {
	Order   []CompID   // callees before users
	Batches [][]CompID // waves of mutually independent components
	Cyclic  bool
	Cycles  []CompID // components that never reached in-degree zero
}

func ToposortKahn(g Graph) *Topo {
	n := len(g.Edges)
	indeg := slices.Clone(g.Indeg)
	topo := &Topo{Order: make([]CompID, 0, n)}

	var current []CompID
	for i := range n {
		if indeg[i] == 0 {
			current = append(current, CompID(i))
		}
	}

	for len(current) > 0 {
		topo.Batches = append(topo.Batches, current)
		var next []CompID
		for _, id := range current {
			topo.Order = append(topo.Order, id)
			for _, to := range g.Edges[id] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if len(topo.Order) != n {
		topo.Cyclic = true
		for i := range n {
			if indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, CompID(i))
			}
		}
	}
	return topo
}

// Names maps ids back to component names.
func (idx Index) Names(ids []CompID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(idx.IDToName[id])
	}
	return out
}
