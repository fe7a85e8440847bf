package graph

import (
	"slices"
)

// DefaultNodeKind is assigned to nodes registered without a kind.
const DefaultNodeKind = "face"

// Pool is the unpartitioned working set of nodes and arcs.
//
// The discovery collaborator registers one node per geometric reference
// and one arc per detected relationship. Decompose later moves every
// element into exactly one Cluster, leaving the Pool empty.
type Pool struct {
	nodes []*Node
	arcs  []*Arc

	nodesByID map[NodeID]*Node
	arcsByID  map[ArcID]*Arc

	lastNode NodeID
	lastArc  ArcID
}

// NewPool creates an empty pool. The first registered node gets NodeID 1.
func NewPool() *Pool {
	return &Pool{
		nodesByID: make(map[NodeID]*Node),
		arcsByID:  make(map[ArcID]*Arc),
	}
}

// AddNode registers a node for an external geometric subject.
func (p *Pool) AddNode(kind string, subject any) *Node {
	if kind == "" {
		kind = DefaultNodeKind
	}
	p.lastNode++
	n := newNode(p.lastNode, kind, subject, p)
	p.nodes = append(p.nodes, n)
	p.nodesByID[n.id] = n
	return n
}

// Connect registers an arc between two pool nodes.
//
// Parallel arcs are merged: if a and b are already connected the existing
// arc is returned unchanged and kind is ignored. Connecting a node to
// itself, or to a node outside this pool, is a structural error.
func (p *Pool) Connect(a, b *Node, kind string) (*Arc, error) {
	if a == nil || b == nil {
		return nil, structuralf(ErrCodeForeignNode, 0, 0, "connect requires two nodes")
	}
	if a == b {
		return nil, structuralf(ErrCodeSelfArc, a.id, 0, "arc endpoints must be distinct")
	}
	if !p.owns(a) {
		return nil, structuralf(ErrCodeForeignNode, a.id, 0, "node is not registered in this pool")
	}
	if !p.owns(b) {
		return nil, structuralf(ErrCodeForeignNode, b.id, 0, "node is not registered in this pool")
	}
	if existing, ok := a.ArcTo(b); ok {
		return existing, nil
	}

	p.lastArc++
	arc := &Arc{id: p.lastArc, a: a, b: b, kind: kind, pool: p}
	a.addArc(arc)
	b.addArc(arc)
	p.arcs = append(p.arcs, arc)
	p.arcsByID[arc.id] = arc
	return arc, nil
}

// RemoveArc detaches an arc from both endpoints and drops it.
func (p *Pool) RemoveArc(arc *Arc) {
	if arc == nil || arc.pool != p {
		return
	}
	arc.clearDirection()
	arc.a.removeArc(arc)
	arc.b.removeArc(arc)
	p.arcs = removeArc(p.arcs, arc)
	delete(p.arcsByID, arc.id)
	arc.pool = nil
}

// RemoveNode drops a node after removing every incident arc, so that no
// arc is left referencing it.
func (p *Pool) RemoveNode(n *Node) {
	if !p.owns(n) {
		return
	}
	for _, arc := range slices.Clone(n.arcs) {
		p.RemoveArc(arc)
	}
	p.nodes = removeNode(p.nodes, n)
	delete(p.nodesByID, n.id)
	n.pool = nil
}

// Node looks up a registered node.
func (p *Pool) Node(id NodeID) (*Node, bool) {
	n, ok := p.nodesByID[id]
	return n, ok
}

// Arc looks up a registered arc.
func (p *Pool) Arc(id ArcID) (*Arc, bool) {
	a, ok := p.arcsByID[id]
	return a, ok
}

// Nodes returns the registered nodes ordered by identity.
func (p *Pool) Nodes() []*Node { return slices.Clone(p.nodes) }

// Arcs returns the registered arcs ordered by identity.
func (p *Pool) Arcs() []*Arc { return slices.Clone(p.arcs) }

// Len returns the number of registered nodes.
func (p *Pool) Len() int { return len(p.nodes) }

// ArcCount returns the number of registered arcs.
func (p *Pool) ArcCount() int { return len(p.arcs) }

// Empty reports whether the pool holds no nodes.
func (p *Pool) Empty() bool { return len(p.nodes) == 0 }

// Clear releases every node and arc still held by the pool.
func (p *Pool) Clear() {
	for _, a := range p.arcs {
		a.pool = nil
	}
	for _, n := range p.nodes {
		n.pool = nil
	}
	p.nodes = nil
	p.arcs = nil
	p.nodesByID = make(map[NodeID]*Node)
	p.arcsByID = make(map[ArcID]*Arc)
}

func (p *Pool) owns(n *Node) bool {
	return n != nil && n.pool == p && p.nodesByID[n.id] == n
}

// Validate checks the structural contract of every registered element.
//
// It returns the first violation found, as a *StructuralError:
//   - every arc has two distinct endpoints registered in this pool
//   - every arc is listed by both endpoints
//   - every node's incident arcs are registered in this pool
//   - every node's direction caches agree with its arcs
func (p *Pool) Validate() error {
	for _, arc := range p.arcs {
		if arc.a == nil || arc.b == nil {
			return structuralf(ErrCodeDanglingArc, 0, arc.id, "arc is missing an endpoint")
		}
		if arc.a == arc.b {
			return structuralf(ErrCodeSelfArc, arc.a.id, arc.id, "arc endpoints must be distinct")
		}
		for _, end := range []*Node{arc.a, arc.b} {
			if !p.owns(end) {
				return structuralf(ErrCodeDanglingArc, end.id, arc.id, "arc endpoint is not registered in this pool")
			}
			if got, _ := end.ArcTo(arc.Other(end)); got != arc {
				return structuralf(ErrCodeCacheMismatch, end.id, arc.id, "endpoint does not list the arc")
			}
		}
	}
	for _, n := range p.nodes {
		for _, arc := range n.arcs {
			if arc.pool != p {
				return structuralf(ErrCodeDanglingArc, n.id, arc.id, "incident arc is not registered in this pool")
			}
		}
		if err := CheckCaches(n); err != nil {
			return err
		}
	}
	return nil
}

// CheckCaches verifies that n's outgoing and incoming caches are disjoint
// and hold exactly its directed incident arcs.
func CheckCaches(n *Node) error {
	directed := 0
	for _, arc := range n.arcs {
		if arc.Other(n) == nil {
			return structuralf(ErrCodeCacheMismatch, n.id, arc.id, "incident arc does not reference the node")
		}
		if !arc.direction.IsSet() {
			continue
		}
		directed++
		inOut := slices.Contains(n.outgoing, arc)
		inIn := slices.Contains(n.incoming, arc)
		switch {
		case inOut && inIn:
			return structuralf(ErrCodeCacheMismatch, n.id, arc.id, "arc cached as both outgoing and incoming")
		case arc.Source() == n && !inOut:
			return structuralf(ErrCodeCacheMismatch, n.id, arc.id, "outgoing arc missing from cache")
		case arc.Target() == n && !inIn:
			return structuralf(ErrCodeCacheMismatch, n.id, arc.id, "incoming arc missing from cache")
		}
	}
	if directed != len(n.outgoing)+len(n.incoming) {
		return structuralf(ErrCodeCacheMismatch, n.id, 0,
			"cache holds %d arcs, node has %d directed arcs", len(n.outgoing)+len(n.incoming), directed)
	}
	return nil
}
