// Package testutil provides deterministic graph builders and solvers for
// tests across the engine packages.
//
// testutil imports only the graph package so that every other internal
// package can use it from its tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tanglegraph/internal/graph"
)

// Build registers n nodes (subjects "N1".."Nn") and connects the given
// 1-based index pairs with "edge" arcs, in order. It panics on structural
// errors, which always indicate a broken test.
func Build(n int, pairs ...[2]int) (*graph.Pool, []*graph.Node) {
	p := graph.NewPool()
	nodes := make([]*graph.Node, n)
	for i := range nodes {
		nodes[i] = p.AddNode(graph.DefaultNodeKind, fmt.Sprintf("N%d", i+1))
	}
	for _, pr := range pairs {
		if _, err := p.Connect(nodes[pr[0]-1], nodes[pr[1]-1], "edge"); err != nil {
			panic(fmt.Sprintf("testutil: connect %v: %v", pr, err))
		}
	}
	return p, nodes
}

// Cycle builds N1–N2, N2–N3, …, Nn–N1.
func Cycle(n int) (*graph.Pool, []*graph.Node) {
	pairs := make([][2]int, 0, n)
	for i := 1; i <= n; i++ {
		pairs = append(pairs, [2]int{i, i%n + 1})
	}
	return Build(n, pairs...)
}

// Path builds N1–N2–…–Nn.
func Path(n int) (*graph.Pool, []*graph.Node) {
	pairs := make([][2]int, 0, n-1)
	for i := 1; i < n; i++ {
		pairs = append(pairs, [2]int{i, i + 1})
	}
	return Build(n, pairs...)
}

// Star builds a center node connected to k leaves. The center is
// registered last so that identity order does not favour it.
func Star(k int) (*graph.Pool, *graph.Node, []*graph.Node) {
	pairs := make([][2]int, 0, k)
	for i := 1; i <= k; i++ {
		pairs = append(pairs, [2]int{k + 1, i})
	}
	p, nodes := Build(k+1, pairs...)
	return p, nodes[k], nodes[:k]
}

// Complete builds the complete graph on n nodes.
func Complete(n int) (*graph.Pool, []*graph.Node) {
	var pairs [][2]int
	for i := 1; i <= n; i++ {
		for j := i + 1; j <= n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return Build(n, pairs...)
}

// TwoTriangles builds two disjoint triangles (N1,N2,N3) and (N4,N5,N6).
func TwoTriangles() (*graph.Pool, []*graph.Node) {
	return Build(6,
		[2]int{1, 2}, [2]int{2, 3}, [2]int{3, 1},
		[2]int{4, 5}, [2]int{5, 6}, [2]int{6, 4})
}

// Grid builds a rows×cols lattice, the typical shape of faces around a
// patch of vertices.
func Grid(rows, cols int) (*graph.Pool, []*graph.Node) {
	idx := func(r, c int) int { return r*cols + c + 1 }
	var pairs [][2]int
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				pairs = append(pairs, [2]int{idx(r, c), idx(r, c+1)})
			}
			if r+1 < rows {
				pairs = append(pairs, [2]int{idx(r, c), idx(r+1, c)})
			}
		}
	}
	return Build(rows*cols, pairs...)
}

// SingleCluster decomposes p and requires exactly one cluster.
func SingleCluster(t testing.TB, p *graph.Pool) *graph.Cluster {
	t.Helper()
	clusters, err := graph.Decompose(p)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	return clusters[0]
}

// AssertAcyclic fails the test if the directed arcs of c contain a cycle
// or any arc is unset. It runs an independent Kahn pass.
func AssertAcyclic(t testing.TB, c *graph.Cluster) {
	t.Helper()
	pending := map[graph.NodeID]int{}
	var queue []*graph.Node
	for _, n := range c.Nodes() {
		pending[n.ID()] = n.InDegree()
		if n.InDegree() == 0 {
			queue = append(queue, n)
		}
	}
	for _, a := range c.Arcs() {
		require.True(t, a.Direction().IsSet(), "arc %s left unset", a.ID())
	}
	placed := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		placed++
		for _, a := range n.Outgoing() {
			pending[a.Target().ID()]--
			if pending[a.Target().ID()] == 0 {
				queue = append(queue, a.Target())
			}
		}
	}
	require.Equal(t, c.Len(), placed, "directed arcs contain a cycle")
}
