package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/snapper"
	"github.com/roach88/tanglegraph/internal/solve"
	"github.com/roach88/tanglegraph/internal/verify"
)

const runColumns = `id, seq, fixture, fixture_fingerprint, report_fingerprint, policy,
	nodes, arcs, max_degree, forced, resolved, unresolved, contradictions, duration_ns`

// ListRuns returns recorded runs ordered by seq ASC, id ASC COLLATE BINARY.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]RunRecord, error) {
	var (
		where []string
		args  []any
	)
	if opts.FixtureFingerprint != "" {
		where = append(where, "fixture_fingerprint = ?")
		args = append(args, opts.FixtureFingerprint)
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun reads a run back with its clusters and contradictions.
// Returns an error wrapping ErrRunNotFound if id is not recorded.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}

	run := &Run{Record: rec}
	if run.Clusters, err = s.readClusters(ctx, id); err != nil {
		return nil, err
	}
	if run.Contradictions, err = s.readContradictions(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec      RunRecord
		policy   string
		duration int64
	)
	err := row.Scan(
		&rec.ID, &rec.Seq, &rec.Fixture, &rec.FixtureFingerprint, &rec.ReportFingerprint, &policy,
		&rec.Nodes, &rec.Arcs, &rec.MaxDegree, &rec.Forced, &rec.Resolved, &rec.Unresolved,
		&rec.Contradictions, &duration,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("scan run: %w", err)
	}
	if rec.Policy, err = solve.ParsePolicy(policy); err != nil {
		return rec, fmt.Errorf("scan run %s: %w", rec.ID, err)
	}
	rec.Duration = time.Duration(duration)
	return rec, nil
}

func (s *Store) readClusters(ctx context.Context, runID string) ([]ClusterRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, policy, nodes, arcs, max_degree, forced, roots, stack
		FROM clusters
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	clusters := []ClusterRecord{}
	for rows.Next() {
		var (
			cr                   ClusterRecord
			policy, roots, stack string
		)
		if err := rows.Scan(&cr.Index, &policy, &cr.NodeCount, &cr.ArcCount, &cr.MaxDegree, &cr.Forced, &roots, &stack); err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		if cr.Policy, err = solve.ParsePolicy(policy); err != nil {
			return nil, fmt.Errorf("scan cluster %d: %w", cr.Index, err)
		}
		if cr.Roots, err = unmarshalIDs(roots); err != nil {
			return nil, fmt.Errorf("scan cluster %d roots: %w", cr.Index, err)
		}
		if cr.Stack, err = unmarshalIDs(stack); err != nil {
			return nil, fmt.Errorf("scan cluster %d stack: %w", cr.Index, err)
		}
		clusters = append(clusters, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	rows.Close()

	byIndex := make(map[int]*ClusterRecord, len(clusters))
	for i := range clusters {
		byIndex[clusters[i].Index] = &clusters[i]
	}
	if err := s.readNodes(ctx, runID, byIndex); err != nil {
		return nil, err
	}
	if err := s.readArcs(ctx, runID, byIndex); err != nil {
		return nil, err
	}
	return clusters, nil
}

func (s *Store) readNodes(ctx context.Context, runID string, byIndex map[int]*ClusterRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_idx, node_id, kind, subject, degree, in_degree, out_degree, solver, reconciled, modified
		FROM nodes
		WHERE run_id = ?
		ORDER BY cluster_idx ASC, node_id ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx, id, modified  int
			solver, reconciled string
			n                  snapper.NodeRecord
		)
		if err := rows.Scan(&idx, &id, &n.Kind, &n.Subject, &n.Degree, &n.InDegree, &n.OutDegree,
			&solver, &reconciled, &modified); err != nil {
			return fmt.Errorf("scan node: %w", err)
		}
		n.ID = graph.NodeID(id)
		n.Modified = modified != 0
		if n.Solver, err = graph.ParseSolverOutcome(solver); err != nil {
			return fmt.Errorf("scan node %s: %w", n.ID, err)
		}
		if n.Reconciled, err = graph.ParseSolverOutcome(reconciled); err != nil {
			return fmt.Errorf("scan node %s: %w", n.ID, err)
		}
		cr, ok := byIndex[idx]
		if !ok {
			return fmt.Errorf("node %s references missing cluster %d", n.ID, idx)
		}
		cr.Nodes = append(cr.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate nodes: %w", err)
	}
	return nil
}

func (s *Store) readArcs(ctx context.Context, runID string, byIndex map[int]*ClusterRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_idx, arc_id, node_a, node_b, kind, direction, outcome
		FROM arcs
		WHERE run_id = ?
		ORDER BY cluster_idx ASC, arc_id ASC
	`, runID)
	if err != nil {
		return fmt.Errorf("query arcs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			idx, id, a, b      int
			direction, outcome string
			rec                snapper.ArcRecord
		)
		if err := rows.Scan(&idx, &id, &a, &b, &rec.Kind, &direction, &outcome); err != nil {
			return fmt.Errorf("scan arc: %w", err)
		}
		rec.ID, rec.A, rec.B = graph.ArcID(id), graph.NodeID(a), graph.NodeID(b)
		if rec.Direction, err = graph.ParseDirection(direction); err != nil {
			return fmt.Errorf("scan arc %s: %w", rec.ID, err)
		}
		if rec.Outcome, err = graph.ParseArcOutcome(outcome); err != nil {
			return fmt.Errorf("scan arc %s: %w", rec.ID, err)
		}
		cr, ok := byIndex[idx]
		if !ok {
			return fmt.Errorf("arc %s references missing cluster %d", rec.ID, idx)
		}
		cr.Arcs = append(cr.Arcs, rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate arcs: %w", err)
	}
	return nil
}

func (s *Store) readContradictions(ctx context.Context, runID string) ([]verify.Contradiction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_idx, code, node_id, arc_id, message
		FROM contradictions
		WHERE run_id = ?
		ORDER BY cluster_idx ASC, seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query contradictions: %w", err)
	}
	defer rows.Close()

	out := []verify.Contradiction{}
	for rows.Next() {
		var (
			c          verify.Contradiction
			code       string
			node, arcs int
		)
		if err := rows.Scan(&c.Cluster, &code, &node, &arcs, &c.Message); err != nil {
			return nil, fmt.Errorf("scan contradiction: %w", err)
		}
		c.Code = verify.Code(code)
		c.Node = graph.NodeID(node)
		c.Arc = graph.ArcID(arcs)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contradictions: %w", err)
	}
	return out, nil
}
