package testutil

import (
	"context"
	"sync"

	"github.com/roach88/tanglegraph/internal/graph"
)

// RecordingSolver is a scripted node solver that records every call.
//
// Outcomes default to Success; Fail and Disagree override individual nodes
// and node pairs. It satisfies solve.Solver structurally.
//
// Thread-safety: all methods are safe for concurrent use, so the solver can
// be shared by clusters executed in parallel.
type RecordingSolver struct {
	mu       sync.Mutex
	seq      int64
	outcomes map[graph.NodeID]graph.SolverOutcome
	disagree map[[2]graph.NodeID]bool
	modifies map[graph.NodeID]bool
	calls    []Call
	checks   int

	// OnSolve, if set, runs inside Solve after the outcome is chosen.
	// Tests use it to simulate solvers with side effects on neighbors.
	OnSolve func(n *graph.Node)
}

// Call is one recorded Solve invocation.
type Call struct {
	Seq  int64
	Node graph.NodeID
}

// NewRecordingSolver creates a solver where every node succeeds.
func NewRecordingSolver() *RecordingSolver {
	return &RecordingSolver{
		outcomes: make(map[graph.NodeID]graph.SolverOutcome),
		disagree: make(map[[2]graph.NodeID]bool),
		modifies: make(map[graph.NodeID]bool),
	}
}

// Fail scripts Failure for the given nodes.
func (s *RecordingSolver) Fail(nodes ...*graph.Node) *RecordingSolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.outcomes[n.ID()] = graph.Failure
	}
	return s
}

// Disagree makes CheckStatus report false for the pair in either order.
func (s *RecordingSolver) Disagree(a, b *graph.Node) *RecordingSolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disagree[pairKey(a.ID(), b.ID())] = true
	return s
}

// Modify makes Solve mark the given nodes as surface-modified.
func (s *RecordingSolver) Modify(nodes ...*graph.Node) *RecordingSolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		s.modifies[n.ID()] = true
	}
	return s
}

// Solve returns the scripted outcome and records the call.
func (s *RecordingSolver) Solve(_ context.Context, n *graph.Node) graph.SolverOutcome {
	s.mu.Lock()
	s.seq++
	s.calls = append(s.calls, Call{Seq: s.seq, Node: n.ID()})
	outcome, ok := s.outcomes[n.ID()]
	if !ok {
		outcome = graph.Success
	}
	modify := s.modifies[n.ID()]
	hook := s.OnSolve
	s.mu.Unlock()

	if modify {
		n.SetSurfaceModified(true)
	}
	if hook != nil {
		hook(n)
	}
	return outcome
}

// CheckStatus reports agreement unless the pair was scripted to disagree.
func (s *RecordingSolver) CheckStatus(_ context.Context, n, other *graph.Node) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	return !s.disagree[pairKey(n.ID(), other.ID())]
}

// Calls returns the recorded Solve calls in invocation order.
func (s *RecordingSolver) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CalledNodes returns the node identities in invocation order.
func (s *RecordingSolver) CalledNodes() []graph.NodeID {
	calls := s.Calls()
	out := make([]graph.NodeID, len(calls))
	for i, c := range calls {
		out[i] = c.Node
	}
	return out
}

// CallCount returns how many times Solve ran for n.
func (s *RecordingSolver) CallCount(n *graph.Node) int {
	count := 0
	for _, c := range s.Calls() {
		if c.Node == n.ID() {
			count++
		}
	}
	return count
}

// CheckCount returns how many times CheckStatus ran.
func (s *RecordingSolver) CheckCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checks
}

func pairKey(a, b graph.NodeID) [2]graph.NodeID {
	if a > b {
		a, b = b, a
	}
	return [2]graph.NodeID{a, b}
}
