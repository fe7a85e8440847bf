// Package solve runs node solvers over a cluster's solve stack and
// aggregates their outcomes under an agreement policy.
//
// The solve mathematics live outside this module. A Solver receives a
// node whose predecessors in the stack have already been solved, decides
// whether the node can be resolved, and reports whether it agrees with a
// neighbor across a shared arc. The Executor owns call order and outcome
// bookkeeping; solvers never touch arc outcomes or reconciled outcomes.
package solve

import (
	"context"
	"slices"
	"sync"

	"github.com/roach88/tanglegraph/internal/graph"
)

// Solver resolves individual nodes. Implementations may mark the node's
// surface as modified. When clusters run in parallel, a Solver shared by
// several clusters must be safe for concurrent use.
type Solver interface {
	// Solve attempts to resolve n and returns Success or Failure.
	Solve(ctx context.Context, n *graph.Node) graph.SolverOutcome

	// CheckStatus reports whether n's result agrees with other's across
	// the arc joining them. It is only called when both succeeded.
	CheckStatus(ctx context.Context, n, other *graph.Node) bool
}

// Funcs adapts plain functions to Solver.
//
// A nil SolveFunc resolves every node; a nil CheckFunc agrees with every
// neighbor.
type Funcs struct {
	SolveFunc func(ctx context.Context, n *graph.Node) graph.SolverOutcome
	CheckFunc func(ctx context.Context, n, other *graph.Node) bool
}

// Solve implements Solver.
func (f Funcs) Solve(ctx context.Context, n *graph.Node) graph.SolverOutcome {
	if f.SolveFunc == nil {
		return graph.Success
	}
	return f.SolveFunc(ctx, n)
}

// CheckStatus implements Solver.
func (f Funcs) CheckStatus(ctx context.Context, n, other *graph.Node) bool {
	if f.CheckFunc == nil {
		return true
	}
	return f.CheckFunc(ctx, n, other)
}

// Registry maps node kinds to solvers.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byKind   map[string]Solver
	fallback Solver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[string]Solver)}
}

// NewRegistryWith creates a registry whose default solver is s.
func NewRegistryWith(s Solver) *Registry {
	r := NewRegistry()
	r.SetDefault(s)
	return r
}

// Register installs s for nodes of the given kind, replacing any
// previous registration.
func (r *Registry) Register(kind string, s Solver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind[kind] = s
}

// SetDefault installs the solver used for kinds without a registration.
func (r *Registry) SetDefault(s Solver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = s
}

// Lookup returns the solver for kind, falling back to the default.
func (r *Registry) Lookup(kind string) (Solver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byKind[kind]; ok {
		return s, true
	}
	return r.fallback, r.fallback != nil
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
