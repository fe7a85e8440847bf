package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tanglegraph/internal/snapper"
)

// WriteRun records a completed run with all of its clusters, nodes, arcs
// and contradictions in one transaction.
//
// Writing a run ID that is already recorded is a no-op, so retrying a write
// after an ambiguous failure is safe.
func (s *Store) WriteRun(ctx context.Context, res *snapper.Result, meta RunMeta) error {
	if res == nil {
		return fmt.Errorf("write run: nil result")
	}
	if res.RunID == "" {
		return fmt.Errorf("write run: result has no run id")
	}

	fingerprint, err := res.Fingerprint()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return fmt.Errorf("write run: next seq: %w", err)
	}

	inserted, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, fixture, fixture_fingerprint, report_fingerprint, policy,
		 nodes, arcs, max_degree, forced, resolved, unresolved, contradictions, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		seq,
		meta.Fixture,
		meta.FixtureFingerprint,
		fingerprint,
		res.Policy.String(),
		res.Nodes,
		res.Arcs,
		res.MaxDegree,
		res.Forced,
		res.Resolved,
		res.Unresolved,
		res.Contradictions,
		int64(res.Duration),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	n, err := inserted.RowsAffected()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n == 0 {
		return nil
	}

	for _, cr := range res.Clusters {
		if err := writeCluster(ctx, tx, res.RunID, cr); err != nil {
			return fmt.Errorf("write run %s: cluster %d: %w", res.RunID, cr.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeCluster(ctx context.Context, tx *sql.Tx, runID string, cr *snapper.ClusterResult) error {
	roots, err := marshalIDs(cr.Roots)
	if err != nil {
		return err
	}
	stack, err := marshalIDs(cr.Stack)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO clusters (run_id, idx, policy, nodes, arcs, max_degree, forced, roots, stack)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, cr.Index, cr.Policy.String(), cr.NodeCount, cr.ArcCount, cr.MaxDegree, cr.Forced, roots, stack); err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}

	for _, n := range cr.Nodes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO nodes
			(run_id, cluster_idx, node_id, kind, subject, degree, in_degree, out_degree, solver, reconciled, modified)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, cr.Index, int(n.ID), n.Kind, n.Subject, n.Degree, n.InDegree, n.OutDegree,
			n.Solver.String(), n.Reconciled.String(), boolToInt(n.Modified),
		); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	for _, a := range cr.Arcs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO arcs (run_id, cluster_idx, arc_id, node_a, node_b, kind, direction, outcome)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, cr.Index, int(a.ID), int(a.A), int(a.B), a.Kind, a.Direction.String(), a.Outcome.String(),
		); err != nil {
			return fmt.Errorf("insert arc %s: %w", a.ID, err)
		}
	}

	if cr.Report == nil {
		return nil
	}
	for i, c := range cr.Report.Contradictions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contradictions (run_id, cluster_idx, seq, code, node_id, arc_id, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			runID, cr.Index, i, string(c.Code), int(c.Node), int(c.Arc), c.Message,
		); err != nil {
			return fmt.Errorf("insert contradiction %s: %w", c.Code, err)
		}
	}
	return nil
}
