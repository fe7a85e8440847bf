package snapper

import "github.com/roach88/tanglegraph/internal/canon"

// Fingerprint hashes the outcome of the run: per cluster, the solve stack,
// every node and arc outcome, and the contradictions found. Run identity
// and timing are excluded, so repeating a run over the same graph with the
// same solvers reproduces the fingerprint.
func (r *Result) Fingerprint() (string, error) {
	clusters := make(canon.Array, len(r.Clusters))
	for i, cr := range r.Clusters {
		clusters[i] = clusterValue(cr)
	}
	return canon.Fingerprint(canon.DomainReport, canon.Object{
		"policy":   canon.String(r.Policy.String()),
		"nodes":    canon.Int(r.Nodes),
		"arcs":     canon.Int(r.Arcs),
		"clusters": clusters,
	})
}

func clusterValue(cr *ClusterResult) canon.Object {
	stack := make(canon.Array, len(cr.Stack))
	for i, id := range cr.Stack {
		stack[i] = canon.Int(id)
	}

	nodes := make(canon.Array, len(cr.Nodes))
	for i, n := range cr.Nodes {
		nodes[i] = canon.Object{
			"id":         canon.Int(n.ID),
			"solver":     canon.String(n.Solver.String()),
			"reconciled": canon.String(n.Reconciled.String()),
			"modified":   canon.Bool(n.Modified),
		}
	}

	arcs := make(canon.Array, len(cr.Arcs))
	for i, a := range cr.Arcs {
		arcs[i] = canon.Object{
			"id":        canon.Int(a.ID),
			"direction": canon.String(a.Direction.String()),
			"outcome":   canon.String(a.Outcome.String()),
		}
	}

	contradictions := canon.Array{}
	if cr.Report != nil {
		for _, c := range cr.Report.Contradictions {
			contradictions = append(contradictions, canon.Object{
				"code": canon.String(string(c.Code)),
				"node": canon.Int(c.Node),
				"arc":  canon.Int(c.Arc),
			})
		}
	}

	return canon.Object{
		"policy":         canon.String(cr.Policy.String()),
		"stack":          stack,
		"nodes":          nodes,
		"arcs":           arcs,
		"contradictions": contradictions,
	}
}
