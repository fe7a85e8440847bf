package graph

// Decompose partitions the pool into its connected components.
//
// The lowest-identity node still unvisited seeds each breadth-first
// traversal; every reachable node and every incident arc is collected into
// a new Cluster. When Decompose returns successfully the pool is empty and
// every former element belongs to exactly one cluster.
//
// The pool is validated first and the partition property is checked
// afterwards; any violation is returned as a *StructuralError and leaves
// the pool untouched.
func Decompose(p *Pool) ([]*Cluster, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	visited := make(map[NodeID]bool, len(p.nodes))
	collected := make(map[ArcID]bool, len(p.arcs))
	var clusters []*Cluster

	for _, seed := range p.nodes {
		if visited[seed.id] {
			continue
		}
		c := &Cluster{index: len(clusters)}
		visited[seed.id] = true
		queue := []*Node{seed}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			c.nodes = append(c.nodes, n)
			for _, arc := range n.arcs {
				if !collected[arc.id] {
					collected[arc.id] = true
					c.arcs = append(c.arcs, arc)
				}
				if other := arc.Other(n); !visited[other.id] {
					visited[other.id] = true
					queue = append(queue, other)
				}
			}
		}
		SortNodes(c.nodes)
		SortArcs(c.arcs)
		clusters = append(clusters, c)
	}

	if err := checkPartition(p, clusters); err != nil {
		return nil, err
	}

	for _, c := range clusters {
		for _, n := range c.nodes {
			n.pool = nil
			n.cluster = c
		}
		for _, a := range c.arcs {
			a.pool = nil
			a.cluster = c
		}
	}
	p.nodes = nil
	p.arcs = nil
	p.nodesByID = make(map[NodeID]*Node)
	p.arcsByID = make(map[ArcID]*Arc)
	return clusters, nil
}

// checkPartition verifies that clusters hold every pool element exactly once.
func checkPartition(p *Pool, clusters []*Cluster) error {
	seenNodes := make(map[NodeID]int, len(p.nodes))
	seenArcs := make(map[ArcID]int, len(p.arcs))
	for _, c := range clusters {
		for _, n := range c.nodes {
			if prev, dup := seenNodes[n.id]; dup {
				return structuralf(ErrCodePartition, n.id, 0, "node in clusters %d and %d", prev, c.index)
			}
			seenNodes[n.id] = c.index
		}
		for _, a := range c.arcs {
			if prev, dup := seenArcs[a.id]; dup {
				return structuralf(ErrCodePartition, 0, a.id, "arc in clusters %d and %d", prev, c.index)
			}
			seenArcs[a.id] = c.index
		}
	}
	for _, n := range p.nodes {
		if _, ok := seenNodes[n.id]; !ok {
			return structuralf(ErrCodePartition, n.id, 0, "node not assigned to any cluster")
		}
	}
	for _, a := range p.arcs {
		if _, ok := seenArcs[a.id]; !ok {
			return structuralf(ErrCodePartition, 0, a.id, "arc not assigned to any cluster")
		}
	}
	if len(seenNodes) != len(p.nodes) || len(seenArcs) != len(p.arcs) {
		return structuralf(ErrCodePartition, 0, 0,
			"clusters hold %d nodes/%d arcs, pool has %d/%d",
			len(seenNodes), len(seenArcs), len(p.nodes), len(p.arcs))
	}
	return nil
}
