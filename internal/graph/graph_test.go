package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPool registers n nodes and connects the given index pairs (1-based).
func buildPool(t *testing.T, n int, pairs ...[2]int) (*Pool, []*Node) {
	t.Helper()
	p := NewPool()
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = p.AddNode("", i+1)
	}
	for _, pr := range pairs {
		_, err := p.Connect(nodes[pr[0]-1], nodes[pr[1]-1], "edge")
		require.NoError(t, err)
	}
	return p, nodes
}

// =============================================================================
// Node & Arc primitives
// =============================================================================

func TestPool_AddNode_AssignsSequentialIDs(t *testing.T) {
	p := NewPool()
	a := p.AddNode("face", "A")
	b := p.AddNode("", "B")

	assert.Equal(t, NodeID(1), a.ID())
	assert.Equal(t, NodeID(2), b.ID())
	assert.Equal(t, "face", a.Kind())
	assert.Equal(t, DefaultNodeKind, b.Kind(), "empty kind falls back to default")
	assert.Equal(t, "B", b.Subject())
	assert.Equal(t, 2, p.Len())
}

func TestPool_Connect_MaintainsArcAndNeighborSets(t *testing.T) {
	p, n := buildPool(t, 3, [2]int{1, 2}, [2]int{1, 3})

	assert.Equal(t, 2, n[0].Degree())
	assert.Equal(t, []*Node{n[1], n[2]}, n[0].Neighbors())
	arc, ok := n[1].ArcTo(n[0])
	require.True(t, ok)
	assert.Equal(t, ArcID(1), arc.ID())
	assert.Equal(t, "edge", arc.Kind())
	assert.Equal(t, DirUnset, arc.Direction())
	assert.Equal(t, 2, p.ArcCount())
	require.NoError(t, p.Validate())
}

func TestPool_Connect_SelfArcIsStructural(t *testing.T) {
	p := NewPool()
	a := p.AddNode("", nil)

	_, err := p.Connect(a, a, "edge")
	require.Error(t, err)
	assert.True(t, IsStructural(err))
	assert.Equal(t, ErrCodeSelfArc, StructuralCode(err))
}

func TestPool_Connect_ForeignNodeIsStructural(t *testing.T) {
	p := NewPool()
	other := NewPool()
	a := p.AddNode("", nil)
	b := other.AddNode("", nil)

	_, err := p.Connect(a, b, "edge")
	assert.Equal(t, ErrCodeForeignNode, StructuralCode(err))
}

func TestPool_Connect_ParallelArcsMerge(t *testing.T) {
	p, n := buildPool(t, 2, [2]int{1, 2})
	first, _ := n[0].ArcTo(n[1])

	again, err := p.Connect(n[1], n[0], "vertex")
	require.NoError(t, err)
	assert.Same(t, first, again, "second connect returns the existing arc")
	assert.Equal(t, "edge", again.Kind())
	assert.Equal(t, 1, p.ArcCount())
	assert.Equal(t, 1, n[0].Degree())
}

func TestArc_SetDirection_UpdatesBothCaches(t *testing.T) {
	_, n := buildPool(t, 2, [2]int{1, 2})
	arc, _ := n[0].ArcTo(n[1])

	require.NoError(t, arc.SetDirection(DirBtoA))

	assert.Same(t, n[1], arc.Source())
	assert.Same(t, n[0], arc.Target())
	assert.Equal(t, []*Arc{arc}, n[1].Outgoing())
	assert.Equal(t, []*Arc{arc}, n[0].Incoming())
	assert.Empty(t, n[0].Outgoing())
	assert.Equal(t, 0, n[0].UnsetDegree())
	require.NoError(t, CheckCaches(n[0]))
	require.NoError(t, CheckCaches(n[1]))
}

func TestArc_SetDirection_Preconditions(t *testing.T) {
	_, n := buildPool(t, 2, [2]int{1, 2})
	arc, _ := n[0].ArcTo(n[1])

	assert.ErrorIs(t, arc.SetDirection(DirUnset), ErrInvalidDirection)
	assert.ErrorIs(t, arc.SetDirection(DirVirtualAtoB), ErrInvalidDirection)

	require.NoError(t, arc.SetDirection(DirAtoB))
	assert.ErrorIs(t, arc.SetDirection(DirBtoA), ErrAlreadyDirected)
	assert.Equal(t, DirAtoB, arc.Direction(), "failed call leaves direction untouched")
}

func TestArc_ForceDirection_BypassesPreconditions(t *testing.T) {
	_, n := buildPool(t, 2, [2]int{1, 2})
	arc, _ := n[0].ArcTo(n[1])
	require.NoError(t, arc.SetDirection(DirAtoB))

	arc.ForceDirection(DirVirtualBtoA)

	assert.Equal(t, DirVirtualBtoA, arc.Direction())
	assert.True(t, arc.Direction().IsVirtual())
	assert.Same(t, n[1], arc.Source())
	assert.Empty(t, n[0].Outgoing())
	assert.Equal(t, []*Arc{arc}, n[0].Incoming())
	require.NoError(t, CheckCaches(n[0]))
	require.NoError(t, CheckCaches(n[1]))
}

func TestArc_ForceDirection_RejectsUnset(t *testing.T) {
	_, n := buildPool(t, 2, [2]int{1, 2})
	arc, _ := n[0].ArcTo(n[1])

	assert.Panics(t, func() { arc.ForceDirection(DirUnset) })
	assert.Panics(t, func() { arc.ForceDirection(Direction(42)) })
}

func TestArc_PlainVirtualIsNominallyAtoB(t *testing.T) {
	_, n := buildPool(t, 2, [2]int{1, 2})
	arc, _ := n[0].ArcTo(n[1])

	arc.ForceDirection(DirVirtual)

	assert.Same(t, n[0], arc.Source())
	assert.Same(t, n[1], arc.Target())
}

func TestArc_Away(t *testing.T) {
	_, n := buildPool(t, 3, [2]int{1, 2})
	arc, _ := n[0].ArcTo(n[1])

	assert.Equal(t, DirAtoB, arc.Away(n[0], false))
	assert.Equal(t, DirBtoA, arc.Away(n[1], false))
	assert.Equal(t, DirVirtualAtoB, arc.Away(n[0], true))
	assert.Equal(t, DirVirtualBtoA, arc.Away(n[1], true))
	assert.Equal(t, DirUnset, arc.Away(n[2], false))
}

func TestDirection_ParseRoundTrip(t *testing.T) {
	for d := DirUnset; d <= DirVirtualBtoA; d++ {
		got, err := ParseDirection(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestOutcomes_TextRoundTrip(t *testing.T) {
	for _, o := range []SolverOutcome{NotAttempted, Success, Failure} {
		text, err := o.MarshalText()
		require.NoError(t, err)
		var got SolverOutcome
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, o, got)
	}
	for _, o := range []ArcOutcome{ArcUnset, ArcSucceeded, ArcFailed} {
		text, err := o.MarshalText()
		require.NoError(t, err)
		var got ArcOutcome
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, o, got)
	}

	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("virtual-b-to-a")))
	assert.Equal(t, DirVirtualBtoA, d)

	var o SolverOutcome
	assert.Error(t, o.UnmarshalText([]byte("maybe")))
}

// =============================================================================
// Removal & merge
// =============================================================================

func TestPool_RemoveNode_CascadesIncidentArcs(t *testing.T) {
	p, n := buildPool(t, 3, [2]int{1, 2}, [2]int{2, 3}, [2]int{1, 3})
	a12, _ := n[0].ArcTo(n[1])
	require.NoError(t, a12.SetDirection(DirAtoB))

	p.RemoveNode(n[1])

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 1, p.ArcCount())
	assert.Equal(t, 1, n[0].Degree())
	assert.Empty(t, n[0].Outgoing(), "removed arc leaves the source cache")
	assert.Equal(t, 1, n[2].Degree())
	_, ok := n[0].ArcTo(n[1])
	assert.False(t, ok)
	require.NoError(t, p.Validate())
}

func TestPool_Absorb_TransplantsArcs(t *testing.T) {
	// 1-2, 3-4, 2-4 ; absorb 4 into 1
	p, n := buildPool(t, 4, [2]int{1, 2}, [2]int{3, 4}, [2]int{2, 4})
	a34, _ := n[2].ArcTo(n[3])
	require.NoError(t, a34.SetDirection(DirAtoB)) // 3 -> 4
	n[3].SetSurfaceModified(true)

	stats, err := p.Absorb(n[0], n[3])
	require.NoError(t, err)

	assert.Equal(t, MergeStats{Transplanted: 1, MergedParallel: 1}, stats)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, 2, p.ArcCount())
	moved, ok := n[2].ArcTo(n[0])
	require.True(t, ok)
	assert.Same(t, a34, moved, "arc identity survives the transplant")
	assert.Same(t, n[2], moved.Source(), "orientation preserved")
	assert.Same(t, n[0], moved.Target())
	assert.True(t, n[0].SurfaceModified())
	require.NoError(t, p.Validate())
}

func TestPool_Absorb_DropsSelfLoops(t *testing.T) {
	p, n := buildPool(t, 3, [2]int{1, 2}, [2]int{2, 3})

	stats, err := p.Absorb(n[0], n[1])
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DroppedSelfLoops)
	assert.Equal(t, 1, stats.Transplanted)
	for _, a := range p.Arcs() {
		assert.NotSame(t, a.A(), a.B(), "no arc references the same node twice")
	}
	require.NoError(t, p.Validate())
}

func TestPool_Absorb_Errors(t *testing.T) {
	p, n := buildPool(t, 2)

	_, err := p.Absorb(n[0], n[0])
	assert.ErrorIs(t, err, ErrSelfMerge)

	p.RemoveNode(n[1])
	_, err = p.Absorb(n[0], n[1])
	assert.Equal(t, ErrCodeForeignNode, StructuralCode(err))
}

// =============================================================================
// Decomposition
// =============================================================================

func TestDecompose_CycleIsOneCluster(t *testing.T) {
	p, _ := buildPool(t, 4, [2]int{1, 2}, [2]int{2, 3}, [2]int{3, 4}, [2]int{4, 1})

	clusters, err := Decompose(p)
	require.NoError(t, err)

	require.Len(t, clusters, 1)
	assert.Equal(t, 4, clusters[0].Len())
	assert.Equal(t, 4, clusters[0].ArcCount())
	assert.True(t, p.Empty(), "pool is drained")
}

func TestDecompose_TwoTriangles(t *testing.T) {
	p, _ := buildPool(t, 6,
		[2]int{1, 2}, [2]int{2, 3}, [2]int{3, 1},
		[2]int{4, 5}, [2]int{5, 6}, [2]int{6, 4})

	clusters, err := Decompose(p)
	require.NoError(t, err)

	require.Len(t, clusters, 2)
	for i, c := range clusters {
		assert.Equal(t, i, c.Index())
		assert.Equal(t, 3, c.Len())
		assert.Equal(t, 3, c.ArcCount())
		require.NoError(t, c.Validate())
	}
}

func TestDecompose_IsolatedNode(t *testing.T) {
	p, n := buildPool(t, 1)

	clusters, err := Decompose(p)
	require.NoError(t, err)

	require.Len(t, clusters, 1)
	assert.Equal(t, []*Node{n[0]}, clusters[0].Nodes())
	assert.Empty(t, clusters[0].Arcs())
	assert.Same(t, clusters[0], n[0].Cluster())
}

func TestDecompose_PartitionProperty(t *testing.T) {
	// path 1-2-3, isolated 4, edge 5-6, star 7:{8,9,10}
	p, _ := buildPool(t, 10,
		[2]int{1, 2}, [2]int{2, 3},
		[2]int{5, 6},
		[2]int{7, 8}, [2]int{7, 9}, [2]int{7, 10})
	totalNodes, totalArcs := p.Len(), p.ArcCount()

	clusters, err := Decompose(p)
	require.NoError(t, err)
	require.Len(t, clusters, 4)

	seenNodes := map[NodeID]bool{}
	seenArcs := map[ArcID]bool{}
	sumNodes, sumArcs := 0, 0
	for _, c := range clusters {
		sumNodes += c.Len()
		sumArcs += c.ArcCount()
		for _, n := range c.Nodes() {
			assert.False(t, seenNodes[n.ID()], "node %s in two clusters", n.ID())
			seenNodes[n.ID()] = true
		}
		for _, a := range c.Arcs() {
			assert.False(t, seenArcs[a.ID()], "arc %s in two clusters", a.ID())
			seenArcs[a.ID()] = true
			assert.True(t, c.Contains(a.A()) && c.Contains(a.B()))
		}
	}
	assert.Equal(t, totalNodes, sumNodes)
	assert.Equal(t, totalArcs, sumArcs)
}

func TestDecompose_ClustersOrderedByIdentity(t *testing.T) {
	// 3-1 and 2-4 interleave identities across components.
	p, n := buildPool(t, 4, [2]int{3, 1}, [2]int{2, 4})

	clusters, err := Decompose(p)
	require.NoError(t, err)

	require.Len(t, clusters, 2)
	assert.Equal(t, []*Node{n[0], n[2]}, clusters[0].Nodes())
	assert.Equal(t, []*Node{n[1], n[3]}, clusters[1].Nodes())
}

func TestDecompose_DanglingArcIsFatal(t *testing.T) {
	p, n := buildPool(t, 2, [2]int{1, 2})
	// Corrupt the pool the way a broken discovery collaborator would:
	// drop a node from the registry without cascading.
	delete(p.nodesByID, n[1].ID())
	p.nodes = removeNode(p.nodes, n[1])

	_, err := Decompose(p)
	require.Error(t, err)
	assert.Equal(t, ErrCodeDanglingArc, StructuralCode(err))
	assert.Equal(t, 1, p.Len(), "pool untouched on failure")
}

func TestCheckCaches_DetectsCorruption(t *testing.T) {
	_, n := buildPool(t, 2, [2]int{1, 2})
	arc, _ := n[0].ArcTo(n[1])
	require.NoError(t, arc.SetDirection(DirAtoB))
	n[0].outgoing = nil

	err := CheckCaches(n[0])
	assert.Equal(t, ErrCodeCacheMismatch, StructuralCode(err))
}

func TestCluster_Release(t *testing.T) {
	p, n := buildPool(t, 2, [2]int{1, 2})
	clusters, err := Decompose(p)
	require.NoError(t, err)

	clusters[0].Release()

	assert.Equal(t, 0, clusters[0].Len())
	assert.Nil(t, n[0].Cluster())
}

func TestMaxDegree(t *testing.T) {
	_, n := buildPool(t, 5, [2]int{1, 2}, [2]int{1, 3}, [2]int{1, 4}, [2]int{4, 5})
	assert.Equal(t, 3, MaxDegree(n))
	assert.Equal(t, 0, MaxDegree(nil))
}
