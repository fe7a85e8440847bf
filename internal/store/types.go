package store

import (
	"time"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/snapper"
	"github.com/roach88/tanglegraph/internal/solve"
	"github.com/roach88/tanglegraph/internal/verify"
)

// RunMeta describes where a run's graph came from.
type RunMeta struct {
	Fixture            string
	FixtureFingerprint string
}

// RunRecord is the summary row of a recorded run.
type RunRecord struct {
	ID                 string        `json:"id"`
	Seq                int64         `json:"seq"`
	Fixture            string        `json:"fixture,omitempty"`
	FixtureFingerprint string        `json:"fixture_fingerprint,omitempty"`
	ReportFingerprint  string        `json:"report_fingerprint"`
	Policy             solve.Policy  `json:"policy"`
	Nodes              int           `json:"nodes"`
	Arcs               int           `json:"arcs"`
	MaxDegree          int           `json:"max_degree"`
	Forced             int           `json:"forced"`
	Resolved           int           `json:"resolved"`
	Unresolved         int           `json:"unresolved"`
	Contradictions     int           `json:"contradictions"`
	Duration           time.Duration `json:"duration_ns"`
}

// OK reports whether the run was free of contradictions.
func (r RunRecord) OK() bool { return r.Contradictions == 0 }

// ClusterRecord is one recorded cluster with its final node and arc state.
type ClusterRecord struct {
	Index     int                  `json:"index"`
	Policy    solve.Policy         `json:"policy"`
	NodeCount int                  `json:"node_count"`
	ArcCount  int                  `json:"arc_count"`
	MaxDegree int                  `json:"max_degree"`
	Forced    int                  `json:"forced"`
	Roots     []graph.NodeID       `json:"roots"`
	Stack     []graph.NodeID       `json:"stack"`
	Nodes     []snapper.NodeRecord `json:"nodes"`
	Arcs      []snapper.ArcRecord  `json:"arcs"`
}

// Run is a recorded run read back in full.
type Run struct {
	Record         RunRecord              `json:"run"`
	Clusters       []ClusterRecord        `json:"clusters"`
	Contradictions []verify.Contradiction `json:"contradictions"`
}

// ListOptions filters ListRuns. The zero value lists every run.
type ListOptions struct {
	// FixtureFingerprint restricts the listing to runs of one fixture.
	FixtureFingerprint string
	// Limit caps the number of runs returned; zero means no cap.
	Limit int
}
