package graph

import "fmt"

// Arc is an edge standing for one pairwise compatibility relationship.
//
// Kind is an opaque classification tag (for example "edge" or "vertex")
// that the engine carries but never interprets.
type Arc struct {
	id        ArcID
	a, b      *Node
	kind      string
	direction Direction
	outcome   ArcOutcome

	pool    *Pool
	cluster *Cluster
}

// ID returns the arc's stable identity.
func (a *Arc) ID() ArcID { return a.id }

// A returns the first endpoint.
func (a *Arc) A() *Node { return a.a }

// B returns the second endpoint.
func (a *Arc) B() *Node { return a.b }

// Kind returns the relationship tag.
func (a *Arc) Kind() string { return a.kind }

// Direction returns the current orientation.
func (a *Arc) Direction() Direction { return a.direction }

// Outcome returns the recorded agreement outcome.
func (a *Arc) Outcome() ArcOutcome { return a.outcome }

// SetOutcome records the agreement outcome.
func (a *Arc) SetOutcome(o ArcOutcome) { a.outcome = o }

// Cluster returns the owning cluster, or nil while in a Pool.
func (a *Arc) Cluster() *Cluster { return a.cluster }

// Other returns the endpoint opposite n, or nil if n is not an endpoint.
func (a *Arc) Other(n *Node) *Node {
	switch n {
	case a.a:
		return a.b
	case a.b:
		return a.a
	default:
		return nil
	}
}

// Source returns the node the arc points away from, or nil if unset.
func (a *Arc) Source() *Node {
	if !a.direction.IsSet() {
		return nil
	}
	if a.direction.fromA() {
		return a.a
	}
	return a.b
}

// Target returns the node the arc points into, or nil if unset.
func (a *Arc) Target() *Node {
	if !a.direction.IsSet() {
		return nil
	}
	if a.direction.fromA() {
		return a.b
	}
	return a.a
}

// Away returns the direction pointing away from endpoint from, in its
// heuristic or virtual variant. It returns DirUnset if from is not an
// endpoint.
func (a *Arc) Away(from *Node, virtual bool) Direction {
	switch {
	case from == a.a && virtual:
		return DirVirtualAtoB
	case from == a.a:
		return DirAtoB
	case from == a.b && virtual:
		return DirVirtualBtoA
	case from == a.b:
		return DirBtoA
	default:
		return DirUnset
	}
}

// SetDirection orients an unset arc through the normal heuristic path.
//
// Only AtoB and BtoA are accepted; virtual orientations are reserved for
// ForceDirection. Both endpoint caches are updated before returning.
func (a *Arc) SetDirection(dir Direction) error {
	if a.direction.IsSet() {
		return fmt.Errorf("set direction on %s: %w (%s)", a.id, ErrAlreadyDirected, a.direction)
	}
	if dir != DirAtoB && dir != DirBtoA {
		return fmt.Errorf("set direction on %s: %w: %s", a.id, ErrInvalidDirection, dir)
	}
	a.apply(dir)
	return nil
}

// ForceDirection orients the arc unconditionally.
//
// It is the last-resort path used by the orientation fallback: it accepts
// any declared direction including the virtual ones, and re-orients arcs
// that are already set. A forced arc is never left unset, so DirUnset
// and undeclared values panic.
func (a *Arc) ForceDirection(dir Direction) {
	if !dir.IsSet() {
		panic(fmt.Sprintf("graph: ForceDirection(%s) on %s", dir, a.id))
	}
	a.apply(dir)
}

// apply swaps the orientation and the endpoint caches in one step.
func (a *Arc) apply(dir Direction) {
	if a.direction.IsSet() {
		src, tgt := a.Source(), a.Target()
		src.outgoing = removeArc(src.outgoing, a)
		tgt.incoming = removeArc(tgt.incoming, a)
	}
	a.direction = dir
	if dir.IsSet() {
		src, tgt := a.Source(), a.Target()
		src.outgoing = append(src.outgoing, a)
		tgt.incoming = append(tgt.incoming, a)
	}
}

// clearDirection returns the arc to DirUnset, detaching it from caches.
func (a *Arc) clearDirection() {
	a.apply(DirUnset)
}

// String renders the arc as "a<id>(n<a>->n<b>)" using its orientation.
func (a *Arc) String() string {
	switch {
	case !a.direction.IsSet():
		return fmt.Sprintf("%s(%s--%s)", a.id, a.a.id, a.b.id)
	default:
		return fmt.Sprintf("%s(%s->%s)", a.id, a.Source().id, a.Target().id)
	}
}
