package fixture

import (
	"fmt"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/solve"
)

// DefaultArcKind is the arc kind used when a fixture arc names none.
const DefaultArcKind = "edge"

// Fixture describes one graph and how its solver behaves.
type Fixture struct {
	// Name identifies the fixture in logs and run history.
	Name string `yaml:"name" json:"name"`

	// Description explains what the fixture exercises.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Policy is the snap policy to run under. Empty means strong.
	Policy string `yaml:"policy,omitempty" json:"policy,omitempty"`

	// Nodes are registered in order, so the first gets NodeID 1.
	Nodes []NodeSpec `yaml:"nodes" json:"nodes"`

	// Arcs connect nodes by fixture id.
	Arcs []ArcSpec `yaml:"arcs,omitempty" json:"arcs,omitempty"`

	// Merges are applied in order after every arc is connected.
	Merges []MergeSpec `yaml:"merges,omitempty" json:"merges,omitempty"`

	// Expect holds optional assertions about the run.
	Expect *Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// NodeSpec describes a node and its scripted solver outcome.
type NodeSpec struct {
	ID       string `yaml:"id" json:"id"`
	Kind     string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Outcome  string `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	Modifies bool   `yaml:"modifies,omitempty" json:"modifies,omitempty"`
}

// ArcSpec describes a tangency between two nodes. Agree defaults to true;
// false makes the neighbor status check between the endpoints fail.
type ArcSpec struct {
	A     string `yaml:"a" json:"a"`
	B     string `yaml:"b" json:"b"`
	Kind  string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Agree *bool  `yaml:"agree,omitempty" json:"agree,omitempty"`
}

// Agrees reports whether the endpoints' status check succeeds.
func (a ArcSpec) Agrees() bool { return a.Agree == nil || *a.Agree }

// MergeSpec absorbs Doomed into Survivor.
type MergeSpec struct {
	Survivor string `yaml:"survivor" json:"survivor"`
	Doomed   string `yaml:"doomed" json:"doomed"`
}

// Expectation lists run properties a fixture asserts. Nil fields are not
// checked.
type Expectation struct {
	Clusters       *int `yaml:"clusters,omitempty" json:"clusters,omitempty"`
	Contradictions *int `yaml:"contradictions,omitempty" json:"contradictions,omitempty"`
	Forced         *int `yaml:"forced,omitempty" json:"forced,omitempty"`
	Resolved       *int `yaml:"resolved,omitempty" json:"resolved,omitempty"`
	Unresolved     *int `yaml:"unresolved,omitempty" json:"unresolved,omitempty"`
}

// SnapPolicy parses the fixture policy, defaulting to strong.
func (f *Fixture) SnapPolicy() (solve.Policy, error) {
	if f.Policy == "" {
		return solve.Strong, nil
	}
	return solve.ParsePolicy(f.Policy)
}

// Validate checks ids, references and merge order.
func (f *Fixture) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(f.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}
	if _, err := f.SnapPolicy(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	known := make(map[string]bool, len(f.Nodes))
	for i, n := range f.Nodes {
		if n.ID == "" {
			return fmt.Errorf("nodes[%d]: id is required", i)
		}
		if known[n.ID] {
			return fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID)
		}
		known[n.ID] = true
		if _, err := parseOutcome(n.Outcome); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}

	for i, a := range f.Arcs {
		if !known[a.A] {
			return fmt.Errorf("arcs[%d]: unknown node %q", i, a.A)
		}
		if !known[a.B] {
			return fmt.Errorf("arcs[%d]: unknown node %q", i, a.B)
		}
		if a.A == a.B {
			return fmt.Errorf("arcs[%d]: endpoints must be distinct (%q)", i, a.A)
		}
	}

	absorbed := make(map[string]bool)
	for i, m := range f.Merges {
		if !known[m.Survivor] {
			return fmt.Errorf("merges[%d]: unknown survivor %q", i, m.Survivor)
		}
		if !known[m.Doomed] {
			return fmt.Errorf("merges[%d]: unknown doomed node %q", i, m.Doomed)
		}
		if m.Survivor == m.Doomed {
			return fmt.Errorf("merges[%d]: node %q cannot absorb itself", i, m.Survivor)
		}
		if absorbed[m.Survivor] {
			return fmt.Errorf("merges[%d]: survivor %q was already absorbed", i, m.Survivor)
		}
		if absorbed[m.Doomed] {
			return fmt.Errorf("merges[%d]: %q was already absorbed", i, m.Doomed)
		}
		absorbed[m.Doomed] = true
	}

	if e := f.Expect; e != nil {
		checks := []struct {
			name string
			v    *int
		}{
			{"clusters", e.Clusters},
			{"contradictions", e.Contradictions},
			{"forced", e.Forced},
			{"resolved", e.Resolved},
			{"unresolved", e.Unresolved},
		}
		for _, c := range checks {
			if c.v != nil && *c.v < 0 {
				return fmt.Errorf("expect.%s: must not be negative", c.name)
			}
		}
	}
	return nil
}

// parseOutcome accepts the two outcomes a scripted solver can return.
func parseOutcome(s string) (graph.SolverOutcome, error) {
	if s == "" {
		return graph.Success, nil
	}
	o, err := graph.ParseSolverOutcome(s)
	if err != nil {
		return 0, err
	}
	if o == graph.NotAttempted {
		return 0, fmt.Errorf("outcome %q cannot be scripted", s)
	}
	return o, nil
}
