package graph

import (
	"slices"
)

// Cluster is one connected component of the pool, processed end to end
// independently of every other cluster.
//
// The node and arc sets are fixed at decomposition time and ordered by
// identity. Roots and the solve stack are derived later by the orient and
// order packages.
type Cluster struct {
	index int
	nodes []*Node
	arcs  []*Arc

	roots  []*Node
	stack  []*Node
	forced int
}

// Index is the position of the cluster in decomposition order.
func (c *Cluster) Index() int { return c.index }

// Nodes returns the member nodes ordered by identity.
func (c *Cluster) Nodes() []*Node { return slices.Clone(c.nodes) }

// Arcs returns the member arcs ordered by identity.
func (c *Cluster) Arcs() []*Arc { return slices.Clone(c.arcs) }

// Len returns the number of member nodes.
func (c *Cluster) Len() int { return len(c.nodes) }

// ArcCount returns the number of member arcs.
func (c *Cluster) ArcCount() int { return len(c.arcs) }

// Contains reports whether n belongs to this cluster.
func (c *Cluster) Contains(n *Node) bool { return n != nil && n.cluster == c }

// Roots returns the nodes with no incoming arcs, as recorded by orientation.
func (c *Cluster) Roots() []*Node { return slices.Clone(c.roots) }

// SetRoots records the orientation roots.
func (c *Cluster) SetRoots(roots []*Node) { c.roots = slices.Clone(roots) }

// SolveStack returns the execution order recorded by the order package.
func (c *Cluster) SolveStack() []*Node { return slices.Clone(c.stack) }

// SetSolveStack records the execution order.
func (c *Cluster) SetSolveStack(stack []*Node) { c.stack = slices.Clone(stack) }

// Forced returns the number of forced orientation assignments.
func (c *Cluster) Forced() int { return c.forced }

// SetForced records the number of forced orientation assignments.
func (c *Cluster) SetForced(n int) { c.forced = n }

// Oriented reports whether every member arc has a direction.
func (c *Cluster) Oriented() bool {
	for _, a := range c.arcs {
		if !a.direction.IsSet() {
			return false
		}
	}
	return true
}

// MaxDegree returns the largest node degree in the cluster.
func (c *Cluster) MaxDegree() int { return MaxDegree(c.nodes) }

// Validate checks the cluster-local structural contract: every arc stays
// inside the cluster and every node's caches are consistent.
func (c *Cluster) Validate() error {
	for _, a := range c.arcs {
		if a.cluster != c || !c.Contains(a.a) || !c.Contains(a.b) {
			return structuralf(ErrCodePartition, 0, a.id, "arc crosses cluster %d boundary", c.index)
		}
	}
	for _, n := range c.nodes {
		for _, a := range n.arcs {
			if a.cluster != c {
				return structuralf(ErrCodePartition, n.id, a.id, "incident arc owned by another cluster")
			}
		}
		if err := CheckCaches(n); err != nil {
			return err
		}
	}
	return nil
}

// Release drops every reference the cluster holds. Nodes and arcs are
// detached from each other so nothing outlives the cluster by accident.
func (c *Cluster) Release() {
	for _, a := range c.arcs {
		a.cluster = nil
	}
	for _, n := range c.nodes {
		n.cluster = nil
	}
	c.nodes = nil
	c.arcs = nil
	c.roots = nil
	c.stack = nil
	c.forced = 0
}
