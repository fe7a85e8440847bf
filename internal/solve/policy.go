package solve

import (
	"fmt"
	"strings"

	"github.com/roach88/tanglegraph/internal/graph"
)

// Policy decides how a node's own outcome combines with the agreement
// outcomes of its directed arcs.
type Policy int

const (
	// Strong requires agreement across every directed arc.
	Strong Policy = iota
	// Weak requires agreement across at least one directed arc.
	Weak
	// NoSnap ignores agreement and keeps the solver's own outcome.
	NoSnap
)

var policyNames = [...]string{
	Strong: "strong",
	Weak:   "weak",
	NoSnap: "nosnap",
}

// String returns the lower-case policy name.
func (p Policy) String() string {
	if p.Valid() {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Valid reports whether p is a declared policy.
func (p Policy) Valid() bool {
	return p >= Strong && p <= NoSnap
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePolicy parses a policy name. Matching ignores case, and "no-snap"
// and "no_snap" are accepted for NoSnap.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strong":
		return Strong, nil
	case "weak":
		return Weak, nil
	case "nosnap", "no-snap", "no_snap":
		return NoSnap, nil
	default:
		return 0, fmt.Errorf("unknown policy %q (want strong, weak or nosnap)", s)
	}
}

// Reconcile computes n's final outcome under policy from its own solver
// outcome and the outcomes of its directed incident arcs.
//
// A node that was not attempted, or whose solver failed, keeps that
// outcome. A successful node with no directed arcs stays successful under
// every policy.
func Reconcile(n *graph.Node, policy Policy) graph.SolverOutcome {
	own := n.SolverOutcome()
	if own != graph.Success || policy == NoSnap {
		return own
	}
	arcs := n.DirectedArcs()
	if len(arcs) == 0 {
		return graph.Success
	}

	succeeded := 0
	for _, a := range arcs {
		if a.Outcome() == graph.ArcSucceeded {
			succeeded++
		}
	}
	switch policy {
	case Strong:
		if succeeded == len(arcs) {
			return graph.Success
		}
	case Weak:
		if succeeded > 0 {
			return graph.Success
		}
	}
	return graph.Failure
}
