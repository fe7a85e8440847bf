package snapper

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/tanglegraph/internal/graph"
)

// NodeRecord is a detached copy of a node's state. Records stay valid after
// Cleanup releases the graph.
type NodeRecord struct {
	ID         graph.NodeID        `json:"id"`
	Kind       string              `json:"kind"`
	Subject    string              `json:"subject,omitempty"`
	Degree     int                 `json:"degree"`
	InDegree   int                 `json:"in_degree"`
	OutDegree  int                 `json:"out_degree"`
	Solver     graph.SolverOutcome `json:"solver"`
	Reconciled graph.SolverOutcome `json:"reconciled"`
	Modified   bool                `json:"modified"`
}

// ArcRecord is a detached copy of an arc's state.
type ArcRecord struct {
	ID        graph.ArcID      `json:"id"`
	A         graph.NodeID     `json:"a"`
	B         graph.NodeID     `json:"b"`
	Kind      string           `json:"kind"`
	Direction graph.Direction  `json:"direction"`
	Outcome   graph.ArcOutcome `json:"outcome"`
}

// Arrow renders the arc as "n1->n2", or "n1--n2" while unset.
func (r ArcRecord) Arrow() string {
	switch r.Direction {
	case graph.DirUnset:
		return fmt.Sprintf("%s--%s", r.A, r.B)
	case graph.DirBtoA, graph.DirVirtualBtoA:
		return fmt.Sprintf("%s->%s", r.B, r.A)
	default:
		return fmt.Sprintf("%s->%s", r.A, r.B)
	}
}

// String renders the record on one line, as the debug dump prints it.
func (r NodeRecord) String() string {
	subject := ""
	if r.Subject != "" {
		subject = " subject=" + r.Subject
	}
	return fmt.Sprintf("%s kind=%s%s degree=%d in=%d out=%d solver=%s reconciled=%s modified=%t",
		r.ID, r.Kind, subject, r.Degree, r.InDegree, r.OutDegree, r.Solver, r.Reconciled, r.Modified)
}

// String renders the record on one line, as the debug dump prints it.
func (r ArcRecord) String() string {
	return fmt.Sprintf("%s %s kind=%s direction=%s outcome=%s", r.ID, r.Arrow(), r.Kind, r.Direction, r.Outcome)
}

func nodeRecords(nodes []*graph.Node) []NodeRecord {
	out := make([]NodeRecord, len(nodes))
	for i, n := range nodes {
		out[i] = NodeRecord{
			ID:         n.ID(),
			Kind:       n.Kind(),
			Subject:    subjectString(n.Subject()),
			Degree:     n.Degree(),
			InDegree:   n.InDegree(),
			OutDegree:  n.OutDegree(),
			Solver:     n.SolverOutcome(),
			Reconciled: n.Reconciled(),
			Modified:   n.SurfaceModified(),
		}
	}
	return out
}

func arcRecords(arcs []*graph.Arc) []ArcRecord {
	out := make([]ArcRecord, len(arcs))
	for i, a := range arcs {
		out[i] = ArcRecord{
			ID:        a.ID(),
			A:         a.A().ID(),
			B:         a.B().ID(),
			Kind:      a.Kind(),
			Direction: a.Direction(),
			Outcome:   a.Outcome(),
		}
	}
	return out
}

func idsOf(nodes []*graph.Node) []graph.NodeID {
	out := make([]graph.NodeID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}

func subjectString(subject any) string {
	switch v := subject.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func joinIDs[T fmt.Stringer](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// dumpWriter accumulates the first write error so the dump code reads
// top to bottom.
type dumpWriter struct {
	w   io.Writer
	err error
}

func (d *dumpWriter) linef(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format+"\n", args...)
}

func dumpNodes(d *dumpWriter, nodes []NodeRecord) {
	for _, n := range nodes {
		d.linef("  node %s", n)
	}
}

func dumpArcs(d *dumpWriter, arcs []ArcRecord) {
	for _, a := range arcs {
		d.linef("  arc %s", a)
	}
}

// dumpCluster writes one cluster block.
func dumpCluster(d *dumpWriter, cr *ClusterResult) {
	d.linef("cluster %d policy=%s nodes=%d arcs=%d max_degree=%d forced=%d roots=%s stack=%s",
		cr.Index, cr.Policy, cr.NodeCount, cr.ArcCount, cr.MaxDegree, cr.Forced,
		joinIDs(cr.Roots), joinIDs(cr.Stack))
	for _, st := range cr.Steps {
		kind := "seal"
		if st.Forced {
			kind = "force"
		}
		d.linef("  step %s %s priority=%d arcs=%s", kind, st.Node, st.Priority, joinIDs(st.Arcs))
	}
	dumpNodes(d, cr.Nodes)
	dumpArcs(d, cr.Arcs)
	if cr.Summary != nil {
		s := cr.Summary
		d.linef("  summary solved=%d failed=%d resolved=%d unresolved=%d arcs_succeeded=%d arcs_failed=%d modified=%d",
			s.Solved, s.Failed, s.Resolved, s.Unresolved, s.ArcsSucceeded, s.ArcsFailed, s.Modified)
	}
	if cr.Report != nil {
		if cr.Report.OK() {
			d.linef("  consistent visited=%d", cr.Report.Visited)
		}
		for _, c := range cr.Report.Contradictions {
			d.linef("  contradiction %s", c)
		}
	}
}
