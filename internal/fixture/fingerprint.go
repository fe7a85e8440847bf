package fixture

import (
	"github.com/roach88/tanglegraph/internal/canon"
	"github.com/roach88/tanglegraph/internal/graph"
)

// Fingerprint identifies the graph and scripted behavior a fixture
// describes. Defaults are filled in before hashing, so a fixture spelled
// out in full and one relying on defaults fingerprint the same. Name,
// description and expectations are not part of the fingerprint.
func (f *Fixture) Fingerprint() (string, error) {
	policy, err := f.SnapPolicy()
	if err != nil {
		return "", err
	}

	nodes := make(canon.Array, len(f.Nodes))
	for i, n := range f.Nodes {
		kind := n.Kind
		if kind == "" {
			kind = graph.DefaultNodeKind
		}
		outcome, err := parseOutcome(n.Outcome)
		if err != nil {
			return "", err
		}
		nodes[i] = canon.Object{
			"id":       canon.String(n.ID),
			"kind":     canon.String(kind),
			"outcome":  canon.String(outcome.String()),
			"modifies": canon.Bool(n.Modifies),
		}
	}

	arcs := make(canon.Array, len(f.Arcs))
	for i, a := range f.Arcs {
		kind := a.Kind
		if kind == "" {
			kind = DefaultArcKind
		}
		arcs[i] = canon.Object{
			"a":     canon.String(a.A),
			"b":     canon.String(a.B),
			"kind":  canon.String(kind),
			"agree": canon.Bool(a.Agrees()),
		}
	}

	merges := make(canon.Array, len(f.Merges))
	for i, m := range f.Merges {
		merges[i] = canon.Object{
			"survivor": canon.String(m.Survivor),
			"doomed":   canon.String(m.Doomed),
		}
	}

	return canon.Fingerprint(canon.DomainFixture, canon.Object{
		"policy": canon.String(policy.String()),
		"nodes":  nodes,
		"arcs":   arcs,
		"merges": merges,
	})
}
