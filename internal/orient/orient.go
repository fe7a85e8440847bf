// Package orient converts a cluster's undirected graph into a DAG.
//
// The builder repeatedly seals the node with the highest priority
//
//	priority(n) = inDegree(n) + unsetDegree(n)
//
// by directing every still-unset incident arc away from it. A node is a
// candidate for sealing only if none of those new arcs would close a
// directed cycle through arcs resolved earlier, and the maximum priority
// must be held by exactly one candidate. When no candidate qualifies (no
// conflict-free node, or a tie at the top) the heuristic has stalled and
// ForceFallback assigns exactly one arc before the loop resumes.
//
// Every assignment, normal or forced, is checked against reachability
// through the already-directed arcs, so the result is acyclic by
// construction. The loop resolves at least one arc per iteration and
// therefore terminates after at most |arcs| iterations.
//
// The orientation produced is one valid DAG, not a canonical one.
package orient

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tanglegraph/internal/graph"
)

// ErrCyclicInput is returned when the arcs already directed on entry form
// a cycle. Orientation cannot repair such input.
var ErrCyclicInput = errors.New("pre-directed arcs form a cycle")

// ErrNothingToForce is returned by ForceFallback when none of the given
// nodes has an unset arc.
var ErrNothingToForce = errors.New("no unset arc to force")

// Step records one assignment pass.
type Step struct {
	// Node is the node the assigned arcs point away from.
	Node graph.NodeID `json:"node"`
	// Priority is the node's priority when it was selected.
	Priority int `json:"priority"`
	// Forced is true for fallback assignments.
	Forced bool `json:"forced"`
	// Arcs lists the arcs oriented in this step, by identity.
	Arcs []graph.ArcID `json:"arcs"`
}

// Result describes the orientation of one cluster.
type Result struct {
	Cluster int
	Steps   []Step
	Forced  int
	Roots   []*graph.Node
}

// Passes returns the number of assignment passes.
func (r *Result) Passes() int { return len(r.Steps) }

// Option configures Orient.
type Option func(*builder)

// WithLogger sets the logger used for per-step debug output.
func WithLogger(l *slog.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

type builder struct {
	logger *slog.Logger
}

// Orient directs every unset arc of c and records the cluster's roots and
// forced-assignment count on c.
//
// Arcs already directed on entry are kept and count toward in-degrees;
// if they contain a cycle ErrCyclicInput is returned and c is unchanged.
func Orient(c *graph.Cluster, opts ...Option) (*Result, error) {
	b := &builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	nodes := c.Nodes()
	if cyclic(nodes) {
		return nil, fmt.Errorf("orient cluster %d: %w", c.Index(), ErrCyclicInput)
	}

	res := &Result{Cluster: c.Index()}
	for {
		open := openNodes(nodes)
		if len(open) == 0 {
			break
		}

		selected, tied := selectNode(open)
		if selected != nil {
			res.Steps = append(res.Steps, seal(selected))
			b.logger.Debug("orient: sealed node",
				"cluster", c.Index(), "node", selected.ID().String(),
				"priority", res.Steps[len(res.Steps)-1].Priority)
			continue
		}

		pool := tied
		if len(pool) == 0 {
			pool = open
		}
		step, err := ForceFallback(pool)
		if err != nil {
			return nil, fmt.Errorf("orient cluster %d: %w", c.Index(), err)
		}
		res.Steps = append(res.Steps, step)
		res.Forced++
		b.logger.Debug("orient: forced assignment",
			"cluster", c.Index(), "node", step.Node.String(),
			"arc", step.Arcs[0].String(), "tied", len(tied))
	}

	res.Roots = Roots(nodes)
	c.SetRoots(res.Roots)
	c.SetForced(res.Forced)
	return res, nil
}

// Priority returns inDegree(n) + unsetDegree(n).
func Priority(n *graph.Node) int {
	return n.InDegree() + n.UnsetDegree()
}

// Sealable reports whether directing every unset arc of n away from n
// keeps the directed relation acyclic.
func Sealable(n *graph.Node) bool {
	for _, arc := range n.UnsetArcs() {
		if Reachable(arc.Other(n), n) {
			return false
		}
	}
	return true
}

// Roots returns the nodes without incoming arcs, preserving input order.
func Roots(nodes []*graph.Node) []*graph.Node {
	var roots []*graph.Node
	for _, n := range nodes {
		if n.InDegree() == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// ForceFallback is the last-resort assignment used when the heuristic
// stalls.
//
// Tie-break: the lowest-identity node among nodes that still has an unset
// arc, and that node's lowest-identity unset arc. The arc is forced away
// from the node with a virtual direction; if that would close a cycle it
// is forced toward the node instead. In a DAG at most one of the two
// orientations can close a cycle, so exactly one arc is always assigned.
func ForceFallback(nodes []*graph.Node) (Step, error) {
	var pick *graph.Node
	for _, n := range nodes {
		if n.UnsetDegree() == 0 {
			continue
		}
		if pick == nil || n.ID() < pick.ID() {
			pick = n
		}
	}
	if pick == nil {
		return Step{}, ErrNothingToForce
	}

	priority := Priority(pick)
	arc := pick.UnsetArcs()[0]
	other := arc.Other(pick)
	source := pick
	if Reachable(other, pick) {
		if Reachable(pick, other) {
			return Step{}, fmt.Errorf("force %s: %w", arc.ID(), ErrCyclicInput)
		}
		source = other
	}
	arc.ForceDirection(arc.Away(source, true))

	return Step{
		Node:     source.ID(),
		Priority: priority,
		Forced:   true,
		Arcs:     []graph.ArcID{arc.ID()},
	}, nil
}

// Reachable reports whether a directed path leads from `from` to `to`
// through resolved arcs. A node reaches itself.
func Reachable(from, to *graph.Node) bool {
	if from == to {
		return true
	}
	seen := map[graph.NodeID]bool{from.ID(): true}
	queue := []*graph.Node{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, arc := range n.Outgoing() {
			next := arc.Target()
			if next == to {
				return true
			}
			if !seen[next.ID()] {
				seen[next.ID()] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// openNodes returns the nodes that still have unset arcs.
func openNodes(nodes []*graph.Node) []*graph.Node {
	var open []*graph.Node
	for _, n := range nodes {
		if n.UnsetDegree() > 0 {
			open = append(open, n)
		}
	}
	return open
}

// selectNode applies the normal rule. It returns the unique
// highest-priority sealable node, or nil together with the nodes tied at
// the top when the rule is ambiguous (tied is empty when no node is
// sealable at all).
func selectNode(open []*graph.Node) (*graph.Node, []*graph.Node) {
	best := -1
	var top []*graph.Node
	for _, n := range open {
		if !Sealable(n) {
			continue
		}
		switch p := Priority(n); {
		case p > best:
			best = p
			top = []*graph.Node{n}
		case p == best:
			top = append(top, n)
		}
	}
	if len(top) == 1 {
		return top[0], nil
	}
	return nil, top
}

// seal directs every unset arc of n away from n.
func seal(n *graph.Node) Step {
	step := Step{Node: n.ID(), Priority: Priority(n)}
	for _, arc := range n.UnsetArcs() {
		// SetDirection cannot fail here: the arc is unset and the
		// direction is a concrete heuristic orientation.
		if err := arc.SetDirection(arc.Away(n, false)); err != nil {
			panic(fmt.Sprintf("orient: seal %s: %v", n.ID(), err))
		}
		step.Arcs = append(step.Arcs, arc.ID())
	}
	return step
}

// cyclic reports whether the directed arcs among nodes contain a cycle.
func cyclic(nodes []*graph.Node) bool {
	pending := make(map[graph.NodeID]int, len(nodes))
	var queue []*graph.Node
	for _, n := range nodes {
		pending[n.ID()] = n.InDegree()
		if n.InDegree() == 0 {
			queue = append(queue, n)
		}
	}
	placed := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		placed++
		for _, arc := range n.Outgoing() {
			t := arc.Target().ID()
			pending[t]--
			if pending[t] == 0 {
				queue = append(queue, arc.Target())
			}
		}
	}
	return placed != len(nodes)
}
