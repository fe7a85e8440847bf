// Package verify checks, after execution, that the outcomes propagated
// through a cluster are consistent with its DAG and agreement policy.
//
// The checker walks the DAG from its roots along outgoing arcs and
// reports every contradiction it finds. It never corrects anything: a
// Report is a read-only diagnosis, and checking the same cluster twice
// yields the same Report.
package verify

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/solve"
)

// Code categorizes a contradiction.
type Code string

const (
	// CodeArcUnoriented indicates an arc without a direction.
	CodeArcUnoriented Code = "ARC_UNORIENTED"

	// CodeArcUnevaluated indicates an arc whose outcome was never set.
	CodeArcUnevaluated Code = "ARC_UNEVALUATED"

	// CodeEndpointMismatch indicates an arc outcome that disagrees with
	// its endpoints: a succeeded arc touching a failed node, or under
	// Strong a failed arc whose endpoints both resolved.
	CodeEndpointMismatch Code = "ARC_ENDPOINT_MISMATCH"

	// CodeNodeNotAttempted indicates a node the executor never solved.
	CodeNodeNotAttempted Code = "NODE_NOT_ATTEMPTED"

	// CodeIncomingConflict indicates a resolved node whose incoming arcs
	// do not support that result under the policy.
	CodeIncomingConflict Code = "INCOMING_CONFLICT"

	// CodeReconcileMismatch indicates a stored reconciled outcome that
	// differs from recomputing it under the policy.
	CodeReconcileMismatch Code = "RECONCILE_MISMATCH"

	// CodeUnreachable indicates a node not reached from any root.
	CodeUnreachable Code = "UNREACHABLE"
)

// Contradiction is one inconsistency found by Check.
type Contradiction struct {
	Code    Code         `json:"code"`
	Cluster int          `json:"cluster"`
	Node    graph.NodeID `json:"node,omitempty"`
	Arc     graph.ArcID  `json:"arc,omitempty"`
	Message string       `json:"message"`
}

// String renders the contradiction on one line.
func (c Contradiction) String() string {
	switch {
	case c.Arc != 0:
		return fmt.Sprintf("%s cluster=%d arc=%s: %s", c.Code, c.Cluster, c.Arc, c.Message)
	case c.Node != 0:
		return fmt.Sprintf("%s cluster=%d node=%s: %s", c.Code, c.Cluster, c.Node, c.Message)
	default:
		return fmt.Sprintf("%s cluster=%d: %s", c.Code, c.Cluster, c.Message)
	}
}

// Report is the result of checking one cluster.
type Report struct {
	Cluster        int             `json:"cluster"`
	Policy         solve.Policy    `json:"policy"`
	Contradictions []Contradiction `json:"contradictions"`

	// Visited counts nodes reached from the roots.
	Visited int `json:"visited"`
}

// OK reports whether no contradiction was found.
func (r *Report) OK() bool { return len(r.Contradictions) == 0 }

// ByCode returns the contradictions with the given code.
func (r *Report) ByCode(code Code) []Contradiction {
	var out []Contradiction
	for _, c := range r.Contradictions {
		if c.Code == code {
			out = append(out, c)
		}
	}
	return out
}

// Counts tallies contradictions per code.
func (r *Report) Counts() map[Code]int {
	counts := make(map[Code]int)
	for _, c := range r.Contradictions {
		counts[c.Code]++
	}
	return counts
}

// Check verifies the executed cluster c under policy.
//
// Roots recorded on the cluster seed the walk; a cluster without recorded
// roots is walked from its zero in-degree nodes. Contradictions are sorted
// by node, then arc, then code.
func Check(c *graph.Cluster, policy solve.Policy) *Report {
	ck := &checker{
		cluster: c,
		policy:  policy,
		report:  &Report{Cluster: c.Index(), Policy: policy, Contradictions: []Contradiction{}},
	}

	visited := ck.walk()
	for _, n := range c.Nodes() {
		if !visited[n.ID()] {
			ck.add(CodeUnreachable, n.ID(), 0, "not reached from any root")
		}
		ck.node(n)
	}
	for _, a := range c.Arcs() {
		ck.arc(a)
	}

	slices.SortFunc(ck.report.Contradictions, func(x, y Contradiction) int {
		return cmp.Or(
			cmp.Compare(x.Node, y.Node),
			cmp.Compare(x.Arc, y.Arc),
			cmp.Compare(x.Code, y.Code),
		)
	})
	return ck.report
}

type checker struct {
	cluster *graph.Cluster
	policy  solve.Policy
	report  *Report
}

func (ck *checker) add(code Code, node graph.NodeID, arc graph.ArcID, format string, args ...any) {
	ck.report.Contradictions = append(ck.report.Contradictions, Contradiction{
		Code:    code,
		Cluster: ck.cluster.Index(),
		Node:    node,
		Arc:     arc,
		Message: fmt.Sprintf(format, args...),
	})
}

// walk performs the breadth-first tree propagation from the roots.
func (ck *checker) walk() map[graph.NodeID]bool {
	roots := ck.cluster.Roots()
	if len(roots) == 0 {
		for _, n := range ck.cluster.Nodes() {
			if n.InDegree() == 0 {
				roots = append(roots, n)
			}
		}
	}

	visited := make(map[graph.NodeID]bool, ck.cluster.Len())
	queue := make([]*graph.Node, 0, len(roots))
	for _, r := range roots {
		if !visited[r.ID()] {
			visited[r.ID()] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out := n.Outgoing()
		graph.SortArcs(out)
		for _, a := range out {
			next := a.Target()
			if !visited[next.ID()] {
				visited[next.ID()] = true
				queue = append(queue, next)
			}
		}
	}
	ck.report.Visited = len(visited)
	return visited
}

func (ck *checker) node(n *graph.Node) {
	if n.SolverOutcome() == graph.NotAttempted {
		ck.add(CodeNodeNotAttempted, n.ID(), 0, "node was never solved")
	}
	if want := solve.Reconcile(n, ck.policy); n.Reconciled() != want {
		ck.add(CodeReconcileMismatch, n.ID(), 0,
			"reconciled %s, %s policy gives %s", n.Reconciled(), ck.policy, want)
	}
	if n.Reconciled() != graph.Success {
		return
	}

	var succeeded, failed int
	for _, a := range n.Incoming() {
		switch a.Outcome() {
		case graph.ArcSucceeded:
			succeeded++
		case graph.ArcFailed:
			failed++
		}
	}
	switch ck.policy {
	case solve.Strong:
		if succeeded > 0 && failed > 0 {
			ck.add(CodeIncomingConflict, n.ID(), 0,
				"resolved with %d succeeded and %d failed incoming arcs", succeeded, failed)
		}
	case solve.Weak:
		if failed > 0 && succeeded == 0 && !anySucceeded(n.Outgoing()) {
			ck.add(CodeIncomingConflict, n.ID(), 0,
				"resolved although all %d incoming arcs failed", failed)
		}
	}
}

func (ck *checker) arc(a *graph.Arc) {
	if !a.Direction().IsSet() {
		ck.add(CodeArcUnoriented, 0, a.ID(), "arc has no direction")
		return
	}
	src, tgt := a.Source(), a.Target()
	switch a.Outcome() {
	case graph.ArcUnset:
		ck.add(CodeArcUnevaluated, 0, a.ID(), "arc %s was never evaluated", a)
	case graph.ArcSucceeded:
		if src.SolverOutcome() != graph.Success || tgt.SolverOutcome() != graph.Success {
			ck.add(CodeEndpointMismatch, 0, a.ID(),
				"succeeded with endpoints %s=%s %s=%s",
				src.ID(), src.SolverOutcome(), tgt.ID(), tgt.SolverOutcome())
		}
	case graph.ArcFailed:
		if ck.policy == solve.Strong &&
			src.Reconciled() == graph.Success && tgt.Reconciled() == graph.Success {
			ck.add(CodeEndpointMismatch, 0, a.ID(),
				"failed but both endpoints resolved under strong policy")
		}
	}
}

func anySucceeded(arcs []*graph.Arc) bool {
	for _, a := range arcs {
		if a.Outcome() == graph.ArcSucceeded {
			return true
		}
	}
	return false
}
