package harness

import (
	"fmt"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/snapper"
)

// CheckPrinciples returns a description of every structural principle res
// violates, or nil.
func CheckPrinciples(res *snapper.Result) []string {
	var out []string
	add := func(format string, args ...any) {
		out = append(out, fmt.Sprintf(format, args...))
	}

	nodes, arcs := 0, 0
	for _, cr := range res.Clusters {
		nodes += len(cr.Nodes)
		arcs += len(cr.Arcs)
		checkCluster(cr, add)
	}
	if nodes != res.Nodes {
		add("partition: clusters hold %d nodes, pool has %d", nodes, res.Nodes)
	}
	if arcs != res.Arcs {
		add("partition: clusters hold %d arcs, pool has %d", arcs, res.Arcs)
	}
	return out
}

func checkCluster(cr *snapper.ClusterResult, add func(string, ...any)) {
	pos := make(map[graph.NodeID]int, len(cr.Stack))
	for i, id := range cr.Stack {
		if _, dup := pos[id]; dup {
			add("stack: cluster %d lists %s twice", cr.Index, id)
		}
		pos[id] = i
	}
	for _, n := range cr.Nodes {
		if _, ok := pos[n.ID]; !ok {
			add("stack: cluster %d is missing %s", cr.Index, n.ID)
		}
	}
	if len(cr.Stack) != len(cr.Nodes) {
		add("stack: cluster %d stacks %d of %d nodes", cr.Index, len(cr.Stack), len(cr.Nodes))
	}

	for _, a := range cr.Arcs {
		if !a.Direction.IsSet() {
			add("oriented: cluster %d arc %s has no direction", cr.Index, a.ID)
			continue
		}
		src, tgt := a.A, a.B
		if a.Direction == graph.DirBtoA || a.Direction == graph.DirVirtualBtoA {
			src, tgt = a.B, a.A
		}
		ps, okS := pos[src]
		pt, okT := pos[tgt]
		if okS && okT && ps >= pt {
			add("order: cluster %d arc %s %s is stacked target first", cr.Index, a.ID, a.Arrow())
		}
	}

	forced := 0
	for _, st := range cr.Steps {
		if st.Forced {
			forced++
		}
	}
	if forced != cr.Forced {
		add("forced: cluster %d counts %d forced, steps show %d", cr.Index, cr.Forced, forced)
	}
}
