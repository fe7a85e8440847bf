package orient_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/orient"
	"github.com/roach88/tanglegraph/internal/testutil"
)

// =============================================================================
// Heuristic orientation
// =============================================================================

func TestOrient_FourCycleStallsAndForces(t *testing.T) {
	p, nodes := testutil.Cycle(4)
	c := testutil.SingleCluster(t, p)

	res, err := orient.Orient(c)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Forced, "three ties before the last node becomes unique")
	assert.Equal(t, 3, c.Forced())
	assert.True(t, c.Oriented())
	testutil.AssertAcyclic(t, c)

	require.Len(t, c.Roots(), 1)
	assert.Equal(t, nodes[0].ID(), c.Roots()[0].ID())

	// a1..a3 forced along the cycle, a4 sealed normally from N1.
	arcs := c.Arcs()
	for _, a := range arcs[:3] {
		assert.True(t, a.Direction().IsVirtual(), "arc %s", a)
	}
	assert.False(t, arcs[3].Direction().IsVirtual())
	assert.Equal(t, nodes[0], arcs[3].Source())
	assert.Equal(t, nodes[3], arcs[3].Target())

	last := res.Steps[len(res.Steps)-1]
	assert.False(t, last.Forced)
	assert.Equal(t, nodes[0].ID(), last.Node)
	assert.Equal(t, 4, res.Passes())
}

func TestOrient_StarSealsCenterFirst(t *testing.T) {
	p, center, leaves := testutil.Star(5)
	c := testutil.SingleCluster(t, p)

	res, err := orient.Orient(c)
	require.NoError(t, err)

	require.NotEmpty(t, res.Steps)
	first := res.Steps[0]
	assert.Equal(t, center.ID(), first.Node)
	assert.False(t, first.Forced)
	assert.Equal(t, 5, first.Priority)
	assert.Len(t, first.Arcs, 5)
	assert.Zero(t, res.Forced)

	for _, leaf := range leaves {
		assert.Equal(t, 1, leaf.InDegree())
		assert.Zero(t, leaf.OutDegree())
	}
	assert.Equal(t, []*graph.Node{center}, c.Roots())
}

func TestOrient_TriangleForcesTwice(t *testing.T) {
	p, nodes := testutil.Cycle(3)
	c := testutil.SingleCluster(t, p)

	res, err := orient.Orient(c)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Forced)
	assert.Equal(t, 3, res.Passes())
	testutil.AssertAcyclic(t, c)
	assert.Equal(t, []*graph.Node{nodes[0]}, c.Roots())
}

func TestOrient_PathNeedsNoFallback(t *testing.T) {
	p, nodes := testutil.Path(3)
	c := testutil.SingleCluster(t, p)

	res, err := orient.Orient(c)
	require.NoError(t, err)

	assert.Zero(t, res.Forced)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, nodes[1].ID(), res.Steps[0].Node)
	assert.Equal(t, []*graph.Node{nodes[1]}, c.Roots())
}

func TestOrient_SingleNodeIsItsOwnRoot(t *testing.T) {
	p, nodes := testutil.Build(1)
	c := testutil.SingleCluster(t, p)

	res, err := orient.Orient(c)
	require.NoError(t, err)
	assert.Empty(t, res.Steps)
	assert.Equal(t, []*graph.Node{nodes[0]}, c.Roots())
}

func TestOrient_KeepsPreDirectedArcs(t *testing.T) {
	p, nodes := testutil.Path(3)
	a1, ok := nodes[0].ArcTo(nodes[1])
	require.True(t, ok)
	// N2 -> N1 is fixed before orientation.
	require.NoError(t, a1.SetDirection(a1.Away(nodes[1], false)))
	c := testutil.SingleCluster(t, p)

	_, err := orient.Orient(c)
	require.NoError(t, err)

	assert.Equal(t, nodes[1], a1.Source())
	testutil.AssertAcyclic(t, c)
}

func TestOrient_RejectsCyclicInput(t *testing.T) {
	p, nodes := testutil.Cycle(3)
	for i, a := range p.Arcs() {
		require.NoError(t, a.SetDirection(a.Away(nodes[i], false)))
	}
	c := testutil.SingleCluster(t, p)

	_, err := orient.Orient(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, orient.ErrCyclicInput))
	assert.Empty(t, c.Roots())
}

func TestOrient_AcyclicOnDenseAndRandomGraphs(t *testing.T) {
	shapes := map[string]func() *graph.Pool{
		"complete6": func() *graph.Pool { p, _ := testutil.Complete(6); return p },
		"grid4x4":   func() *graph.Pool { p, _ := testutil.Grid(4, 4); return p },
		"cycle9":    func() *graph.Pool { p, _ := testutil.Cycle(9); return p },
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		n := 8 + i
		var pairs [][2]int
		for a := 1; a <= n; a++ {
			pairs = append(pairs, [2]int{a, a%n + 1})
			for b := a + 2; b <= n; b++ {
				if rng.Intn(3) == 0 {
					pairs = append(pairs, [2]int{a, b})
				}
			}
		}
		name := "random" + string(rune('A'+i))
		shapes[name] = func() *graph.Pool { p, _ := testutil.Build(n, pairs...); return p }
	}

	for name, build := range shapes {
		t.Run(name, func(t *testing.T) {
			c := testutil.SingleCluster(t, build())
			res, err := orient.Orient(c)
			require.NoError(t, err)
			testutil.AssertAcyclic(t, c)
			assert.LessOrEqual(t, res.Passes(), c.ArcCount())
			assert.NotEmpty(t, c.Roots())
		})
	}
}

// =============================================================================
// Fallback and helpers
// =============================================================================

func TestForceFallback_LowestIdentityAway(t *testing.T) {
	p, nodes := testutil.Cycle(4)
	_ = testutil.SingleCluster(t, p)

	// Offered out of order, the pick is still N2 and its lowest arc N1--N2.
	step, err := orient.ForceFallback([]*graph.Node{nodes[3], nodes[1], nodes[2]})
	require.NoError(t, err)

	assert.True(t, step.Forced)
	assert.Equal(t, nodes[1].ID(), step.Node)
	require.Len(t, step.Arcs, 1)

	a, ok := nodes[1].ArcTo(nodes[0])
	require.True(t, ok)
	assert.Equal(t, a.ID(), step.Arcs[0])
	assert.Equal(t, graph.DirVirtualBtoA, a.Direction())
	assert.Equal(t, nodes[1], a.Source())
	assert.Equal(t, nodes[0], a.Target())
}

func TestForceFallback_ReversesToAvoidCycle(t *testing.T) {
	p, nodes := testutil.Cycle(3)
	arcs := p.Arcs()
	// a2: N2 -> N3, a3: N3 -> N1; a1 (N1--N2) stays unset.
	require.NoError(t, arcs[1].SetDirection(arcs[1].Away(nodes[1], false)))
	require.NoError(t, arcs[2].SetDirection(arcs[2].Away(nodes[2], false)))
	_ = testutil.SingleCluster(t, p)

	step, err := orient.ForceFallback([]*graph.Node{nodes[0]})
	require.NoError(t, err)

	assert.Equal(t, nodes[1].ID(), step.Node, "forced toward N1 instead")
	assert.Equal(t, graph.DirVirtualBtoA, arcs[0].Direction())
	assert.Equal(t, nodes[1], arcs[0].Source())
}

func TestForceFallback_NothingToForce(t *testing.T) {
	p, nodes := testutil.Path(2)
	c := testutil.SingleCluster(t, p)
	_, err := orient.Orient(c)
	require.NoError(t, err)

	_, err = orient.ForceFallback(nodes)
	assert.ErrorIs(t, err, orient.ErrNothingToForce)
}

func TestReachable(t *testing.T) {
	p, nodes := testutil.Path(4)
	for i, a := range p.Arcs() {
		require.NoError(t, a.SetDirection(a.Away(nodes[i], false)))
	}

	assert.True(t, orient.Reachable(nodes[0], nodes[3]))
	assert.True(t, orient.Reachable(nodes[2], nodes[2]))
	assert.False(t, orient.Reachable(nodes[3], nodes[0]))
}

func TestPriorityAndSealable(t *testing.T) {
	p, nodes := testutil.Cycle(3)
	arcs := p.Arcs()
	require.NoError(t, arcs[0].SetDirection(arcs[0].Away(nodes[0], false))) // N1 -> N2
	require.NoError(t, arcs[1].SetDirection(arcs[1].Away(nodes[1], false))) // N2 -> N3

	assert.Equal(t, 1, orient.Priority(nodes[0]))
	assert.Equal(t, 2, orient.Priority(nodes[2]))
	assert.True(t, orient.Sealable(nodes[0]))
	assert.False(t, orient.Sealable(nodes[2]), "N3 -> N1 would close the cycle")
}
