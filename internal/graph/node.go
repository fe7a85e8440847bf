package graph

import (
	"slices"
)

// Node is a graph vertex standing for one external geometric reference.
//
// The subject is opaque to the engine. Kind selects the solver strategy
// (see solve.Registry).
type Node struct {
	id      NodeID
	kind    string
	subject any

	// arcs holds every incident arc in attachment order.
	arcs []*Arc
	// neighbors indexes incident arcs by the opposite endpoint.
	neighbors map[NodeID]*Arc
	// outgoing and incoming partition the directed subset of arcs.
	outgoing []*Arc
	incoming []*Arc

	solverOutcome   SolverOutcome
	reconciled      SolverOutcome
	surfaceModified bool

	pool    *Pool
	cluster *Cluster
}

func newNode(id NodeID, kind string, subject any, p *Pool) *Node {
	return &Node{
		id:        id,
		kind:      kind,
		subject:   subject,
		neighbors: make(map[NodeID]*Arc),
		pool:      p,
	}
}

// ID returns the node's stable identity.
func (n *Node) ID() NodeID { return n.id }

// Kind returns the node kind used for solver selection.
func (n *Node) Kind() string { return n.kind }

// Subject returns the external geometric reference.
func (n *Node) Subject() any { return n.subject }

// Cluster returns the cluster owning the node, or nil while it is still
// in a Pool.
func (n *Node) Cluster() *Cluster { return n.cluster }

// Arcs returns the incident arcs in attachment order.
func (n *Node) Arcs() []*Arc { return slices.Clone(n.arcs) }

// Outgoing returns the directed incident arcs whose source is n.
func (n *Node) Outgoing() []*Arc { return slices.Clone(n.outgoing) }

// Incoming returns the directed incident arcs whose target is n.
func (n *Node) Incoming() []*Arc { return slices.Clone(n.incoming) }

// Neighbors returns the opposite endpoints of the incident arcs, in arc
// attachment order.
func (n *Node) Neighbors() []*Node {
	out := make([]*Node, 0, len(n.arcs))
	for _, a := range n.arcs {
		out = append(out, a.Other(n))
	}
	return out
}

// ArcTo returns the arc connecting n and other, if one exists.
func (n *Node) ArcTo(other *Node) (*Arc, bool) {
	if other == nil {
		return nil, false
	}
	a, ok := n.neighbors[other.id]
	return a, ok
}

// Degree is the number of incident arcs.
func (n *Node) Degree() int { return len(n.arcs) }

// InDegree counts incident arcs resolved as pointing into n.
func (n *Node) InDegree() int { return len(n.incoming) }

// OutDegree counts incident arcs resolved as pointing away from n.
func (n *Node) OutDegree() int { return len(n.outgoing) }

// UnsetDegree counts incident arcs whose direction is still unset.
func (n *Node) UnsetDegree() int {
	return len(n.arcs) - len(n.outgoing) - len(n.incoming)
}

// UnsetArcs returns the incident arcs without a direction, ordered by ArcID.
func (n *Node) UnsetArcs() []*Arc {
	var out []*Arc
	for _, a := range n.arcs {
		if !a.direction.IsSet() {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, compareArcs)
	return out
}

// DirectedArcs returns the incoming then outgoing arcs.
func (n *Node) DirectedArcs() []*Arc {
	out := make([]*Arc, 0, len(n.incoming)+len(n.outgoing))
	out = append(out, n.incoming...)
	return append(out, n.outgoing...)
}

// SolverOutcome returns the outcome recorded by the executor.
func (n *Node) SolverOutcome() SolverOutcome { return n.solverOutcome }

// SetSolverOutcome records the outcome of the node's solver.
func (n *Node) SetSolverOutcome(o SolverOutcome) { n.solverOutcome = o }

// Reconciled returns the node outcome after applying the agreement policy.
func (n *Node) Reconciled() SolverOutcome { return n.reconciled }

// SetReconciled records the policy-reconciled outcome.
func (n *Node) SetReconciled(o SolverOutcome) { n.reconciled = o }

// SurfaceModified reports whether the solver changed the subject.
func (n *Node) SurfaceModified() bool { return n.surfaceModified }

// SetSurfaceModified is called by solvers that changed the subject.
func (n *Node) SetSurfaceModified(v bool) { n.surfaceModified = v }

// ResetOutcomes clears the solver and reconciled outcomes of the node and
// the outcomes of its arcs. The surface-modified flag is kept: it records
// changes to the subject, which a reset does not undo.
func (n *Node) ResetOutcomes() {
	n.solverOutcome = NotAttempted
	n.reconciled = NotAttempted
	for _, a := range n.arcs {
		a.outcome = ArcUnset
	}
}

func (n *Node) addArc(a *Arc) {
	n.arcs = append(n.arcs, a)
	n.neighbors[a.Other(n).id] = a
}

func (n *Node) removeArc(a *Arc) {
	n.arcs = removeArc(n.arcs, a)
	n.outgoing = removeArc(n.outgoing, a)
	n.incoming = removeArc(n.incoming, a)
	if other := a.Other(n); other != nil && n.neighbors[other.id] == a {
		delete(n.neighbors, other.id)
	}
}

func removeArc(list []*Arc, a *Arc) []*Arc {
	if i := slices.Index(list, a); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

func removeNode(list []*Node, n *Node) []*Node {
	if i := slices.Index(list, n); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

func compareNodes(a, b *Node) int { return int(a.id) - int(b.id) }

func compareArcs(a, b *Arc) int { return int(a.id) - int(b.id) }

// SortNodes orders nodes by identity in place.
func SortNodes(nodes []*Node) { slices.SortFunc(nodes, compareNodes) }

// SortArcs orders arcs by identity in place.
func SortArcs(arcs []*Arc) { slices.SortFunc(arcs, compareArcs) }

// MaxDegree returns the largest Degree among nodes.
func MaxDegree(nodes []*Node) int {
	best := 0
	for _, n := range nodes {
		if d := n.Degree(); d > best {
			best = d
		}
	}
	return best
}
