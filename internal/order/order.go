// Package order derives the solve stack of an oriented cluster.
//
// The stack is a topological order of the cluster DAG computed with Kahn's
// algorithm: a node is placed only after every node with an arc into it.
// The queue is seeded with the zero in-degree nodes in cluster order and
// successors are released in arc-identity order, so the same DAG always
// yields the same stack.
package order

import (
	"errors"
	"fmt"

	"github.com/roach88/tanglegraph/internal/graph"
)

var (
	// ErrUnoriented is returned when a cluster still has unset arcs.
	ErrUnoriented = errors.New("cluster has unset arcs")

	// ErrCycle is returned when the directed arcs contain a cycle.
	ErrCycle = errors.New("directed arcs contain a cycle")
)

// Build computes the solve stack of c and records it on the cluster.
func Build(c *graph.Cluster) ([]*graph.Node, error) {
	for _, a := range c.Arcs() {
		if !a.Direction().IsSet() {
			return nil, fmt.Errorf("order cluster %d: arc %s: %w", c.Index(), a.ID(), ErrUnoriented)
		}
	}

	waves, err := kahn(c)
	if err != nil {
		return nil, err
	}
	stack := make([]*graph.Node, 0, c.Len())
	for _, w := range waves {
		stack = append(stack, w...)
	}
	c.SetSolveStack(stack)
	return stack, nil
}

// Levels groups the nodes of an oriented cluster by depth: level 0 holds
// the roots and every other node sits one level below its deepest
// predecessor. Nodes within a level do not depend on each other.
func Levels(c *graph.Cluster) ([][]*graph.Node, error) {
	depth := make(map[graph.NodeID]int, c.Len())
	stack, err := Build(c)
	if err != nil {
		return nil, err
	}
	var out [][]*graph.Node
	for _, n := range stack {
		d := 0
		for _, a := range n.Incoming() {
			if pd := depth[a.Source().ID()] + 1; pd > d {
				d = pd
			}
		}
		depth[n.ID()] = d
		for len(out) <= d {
			out = append(out, nil)
		}
		out[d] = append(out[d], n)
	}
	return out, nil
}

// Validate reports whether stack is a dependency order of c: it holds
// every cluster node exactly once and every arc's source precedes its
// target.
func Validate(c *graph.Cluster, stack []*graph.Node) error {
	if len(stack) != c.Len() {
		return fmt.Errorf("stack holds %d nodes, cluster has %d", len(stack), c.Len())
	}
	pos := make(map[graph.NodeID]int, len(stack))
	for i, n := range stack {
		if !c.Contains(n) {
			return fmt.Errorf("stack position %d: %s is not in cluster %d", i, n.ID(), c.Index())
		}
		if _, dup := pos[n.ID()]; dup {
			return fmt.Errorf("stack position %d: %s appears twice", i, n.ID())
		}
		pos[n.ID()] = i
	}
	for _, a := range c.Arcs() {
		if !a.Direction().IsSet() {
			return fmt.Errorf("arc %s: %w", a.ID(), ErrUnoriented)
		}
		if pos[a.Source().ID()] >= pos[a.Target().ID()] {
			return fmt.Errorf("arc %s: source %s placed after target %s", a, a.Source().ID(), a.Target().ID())
		}
	}
	return nil
}

// kahn runs the FIFO pass and returns the nodes in placement order, one
// wave per queue generation.
func kahn(c *graph.Cluster) ([][]*graph.Node, error) {
	pending := make(map[graph.NodeID]int, c.Len())
	var current []*graph.Node
	for _, n := range c.Nodes() {
		pending[n.ID()] = n.InDegree()
		if n.InDegree() == 0 {
			current = append(current, n)
		}
	}

	var waves [][]*graph.Node
	placed := 0
	for len(current) > 0 {
		waves = append(waves, current)
		placed += len(current)
		var next []*graph.Node
		for _, n := range current {
			out := n.Outgoing()
			graph.SortArcs(out)
			for _, a := range out {
				t := a.Target()
				pending[t.ID()]--
				if pending[t.ID()] == 0 {
					next = append(next, t)
				}
			}
		}
		current = next
	}
	if placed != c.Len() {
		return nil, fmt.Errorf("order cluster %d: placed %d of %d nodes: %w",
			c.Index(), placed, c.Len(), ErrCycle)
	}
	return waves, nil
}
