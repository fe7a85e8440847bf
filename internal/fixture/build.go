package fixture

import (
	"context"
	"fmt"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/solve"
)

// Built is a fixture materialized into a pool and a solver registry.
type Built struct {
	Pool     *graph.Pool
	Registry *solve.Registry
	Policy   solve.Policy
	Solver   *ScriptedSolver

	// Nodes maps every fixture id to its node after merges. An absorbed
	// id maps to the node that absorbed it.
	Nodes map[string]*graph.Node

	// Names maps surviving node identities back to fixture ids.
	Names map[graph.NodeID]string

	// Merges records what each merge did, in fixture order.
	Merges []graph.MergeStats
}

// Build registers the fixture's nodes and arcs in a new pool, applies its
// merges, and scripts a solver that replays the fixture's outcomes. The
// scripted solver is the registry default, so it serves every node kind.
func (f *Fixture) Build() (*Built, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	policy, err := f.SnapPolicy()
	if err != nil {
		return nil, err
	}

	pool := graph.NewPool()
	nodes := make(map[string]*graph.Node, len(f.Nodes))
	solver := &ScriptedSolver{
		outcomes: make(map[graph.NodeID]graph.SolverOutcome),
		modifies: make(map[graph.NodeID]bool),
		disagree: make(map[[2]graph.NodeID]bool),
	}

	for _, ns := range f.Nodes {
		n := pool.AddNode(ns.Kind, ns.ID)
		nodes[ns.ID] = n
		outcome, _ := parseOutcome(ns.Outcome)
		solver.outcomes[n.ID()] = outcome
		if ns.Modifies {
			solver.modifies[n.ID()] = true
		}
	}

	for i, as := range f.Arcs {
		kind := as.Kind
		if kind == "" {
			kind = DefaultArcKind
		}
		if _, err := pool.Connect(nodes[as.A], nodes[as.B], kind); err != nil {
			return nil, fmt.Errorf("arcs[%d]: %w", i, err)
		}
	}

	built := &Built{Pool: pool, Policy: policy, Solver: solver}
	for i, ms := range f.Merges {
		survivor, doomed := nodes[ms.Survivor], nodes[ms.Doomed]
		stats, err := pool.Absorb(survivor, doomed)
		if err != nil {
			return nil, fmt.Errorf("merges[%d]: %w", i, err)
		}
		built.Merges = append(built.Merges, stats)
		for id, n := range nodes {
			if n == doomed {
				nodes[id] = survivor
			}
		}
	}

	// Disagreements are keyed on the endpoints that survive merging.
	for _, as := range f.Arcs {
		if as.Agrees() {
			continue
		}
		a, b := nodes[as.A], nodes[as.B]
		if a != b {
			solver.disagree[pairKey(a.ID(), b.ID())] = true
		}
	}

	built.Nodes = nodes
	built.Names = make(map[graph.NodeID]string, pool.Len())
	for _, n := range pool.Nodes() {
		built.Names[n.ID()] = n.Subject().(string)
	}
	built.Registry = solve.NewRegistryWith(solver)
	return built, nil
}

// ScriptedSolver replays fixture outcomes. It is read-only once built and
// safe for concurrent use by parallel clusters.
type ScriptedSolver struct {
	outcomes map[graph.NodeID]graph.SolverOutcome
	modifies map[graph.NodeID]bool
	disagree map[[2]graph.NodeID]bool
}

// Solve returns the scripted outcome, marking the surface modified when
// the fixture says so. Nodes the fixture never named succeed.
func (s *ScriptedSolver) Solve(_ context.Context, n *graph.Node) graph.SolverOutcome {
	if s.modifies[n.ID()] {
		n.SetSurfaceModified(true)
	}
	if o, ok := s.outcomes[n.ID()]; ok {
		return o
	}
	return graph.Success
}

// CheckStatus reports whether n agrees with its neighbor other.
func (s *ScriptedSolver) CheckStatus(_ context.Context, n, other *graph.Node) bool {
	return !s.disagree[pairKey(n.ID(), other.ID())]
}

func pairKey(a, b graph.NodeID) [2]graph.NodeID {
	if a > b {
		a, b = b, a
	}
	return [2]graph.NodeID{a, b}
}
