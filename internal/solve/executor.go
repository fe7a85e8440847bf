package solve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tanglegraph/internal/graph"
)

// ErrNoSolveStack is returned when a cluster is executed before its solve
// stack covers every node.
var ErrNoSolveStack = errors.New("cluster has no complete solve stack")

// Summary aggregates one cluster execution.
type Summary struct {
	Cluster int    `json:"cluster"`
	Policy  Policy `json:"policy"`

	// Solved and Failed count solver outcomes.
	Solved int `json:"solved"`
	Failed int `json:"failed"`

	// Resolved and Unresolved count reconciled outcomes.
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`

	ArcsSucceeded int `json:"arcs_succeeded"`
	ArcsFailed    int `json:"arcs_failed"`

	// Modified counts nodes whose surface the solver changed.
	Modified int `json:"modified"`

	// Calls and Checks count Solve and CheckStatus invocations.
	Calls  int `json:"calls"`
	Checks int `json:"checks"`

	// Missing counts nodes whose kind has no solver.
	Missing int `json:"missing"`
}

// Executor drives solvers over solve stacks.
//
// An Executor holds no per-run state and may execute several clusters
// concurrently as long as the registered solvers allow it.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor. A nil logger uses slog.Default().
func NewExecutor(registry *Registry, logger *slog.Logger) *Executor {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{registry: registry, logger: logger}
}

// Execute solves every node of c in solve-stack order, evaluates every
// arc, and records each node's reconciled outcome under policy.
//
// Each node is solved exactly once. When a node is solved all of its
// predecessors already have outcomes, so its incoming arcs are evaluated
// immediately: an arc succeeds iff both endpoints succeeded and the
// target's solver agrees with the source. A failing solver only affects
// its own node and the arcs touching it.
//
// Outcomes from a previous execution of c are cleared first.
func (e *Executor) Execute(ctx context.Context, c *graph.Cluster, policy Policy) (*Summary, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("execute cluster %d: invalid policy %d", c.Index(), int(policy))
	}
	stack := c.SolveStack()
	if len(stack) != c.Len() {
		return nil, fmt.Errorf("execute cluster %d: stack holds %d of %d nodes: %w",
			c.Index(), len(stack), c.Len(), ErrNoSolveStack)
	}

	for _, n := range c.Nodes() {
		n.ResetOutcomes()
	}
	for _, a := range c.Arcs() {
		a.SetOutcome(graph.ArcUnset)
	}

	sum := &Summary{Cluster: c.Index(), Policy: policy}
	for _, n := range stack {
		solver, ok := e.registry.Lookup(n.Kind())
		if !ok {
			sum.Missing++
			n.SetSolverOutcome(graph.Failure)
			e.logger.Warn("no solver for node kind",
				"cluster", c.Index(), "node", n.ID().String(), "kind", n.Kind())
		} else {
			sum.Calls++
			outcome := solver.Solve(ctx, n)
			if outcome != graph.Success && outcome != graph.Failure {
				e.logger.Warn("solver returned no verdict, treating as failure",
					"cluster", c.Index(), "node", n.ID().String(), "outcome", outcome.String())
				outcome = graph.Failure
			}
			n.SetSolverOutcome(outcome)
		}

		for _, a := range n.Incoming() {
			src := a.Source()
			agree := false
			if n.SolverOutcome() == graph.Success && src.SolverOutcome() == graph.Success {
				sum.Checks++
				agree = solver.CheckStatus(ctx, n, src)
			}
			if agree {
				a.SetOutcome(graph.ArcSucceeded)
			} else {
				a.SetOutcome(graph.ArcFailed)
			}
		}

		e.logger.Debug("solved node",
			"cluster", c.Index(), "node", n.ID().String(),
			"outcome", n.SolverOutcome().String(), "incoming", n.InDegree())
	}

	for _, n := range stack {
		r := Reconcile(n, policy)
		n.SetReconciled(r)
		switch n.SolverOutcome() {
		case graph.Success:
			sum.Solved++
		case graph.Failure:
			sum.Failed++
		}
		if r == graph.Success {
			sum.Resolved++
		} else {
			sum.Unresolved++
		}
		if n.SurfaceModified() {
			sum.Modified++
		}
	}
	for _, a := range c.Arcs() {
		switch a.Outcome() {
		case graph.ArcSucceeded:
			sum.ArcsSucceeded++
		case graph.ArcFailed:
			sum.ArcsFailed++
		}
	}

	if sum.Unresolved > 0 {
		e.logger.Warn("cluster left unresolved nodes",
			"cluster", c.Index(), "policy", policy.String(),
			"unresolved", sum.Unresolved, "nodes", c.Len())
	}
	return sum, nil
}
