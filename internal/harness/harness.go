package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/roach88/tanglegraph/internal/fixture"
	"github.com/roach88/tanglegraph/internal/snapper"
	"github.com/roach88/tanglegraph/internal/store"
	"github.com/roach88/tanglegraph/internal/testutil"
)

// Result is the outcome of running one fixture.
type Result struct {
	Fixture string `json:"fixture"`
	Path    string `json:"path,omitempty"`

	// Pass is true when Errors is empty.
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	ReportFingerprint string          `json:"report_fingerprint"`
	Dump              string          `json:"dump"`
	Run               *snapper.Result `json:"run"`
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Option configures a harness run.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	concurrency int
}

// WithLogger sets the logger passed to the snapper. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithConcurrency sets how many clusters execute in parallel.
func WithConcurrency(n int) Option {
	return func(c *config) { c.concurrency = n }
}

// RunID is the run identity the harness assigns to a fixture, so dumps
// are reproducible.
func RunID(f *fixture.Fixture) string {
	return "harness-" + f.Name
}

// Run executes f and evaluates it.
//
// The returned error reports failures to execute at all (a fixture that
// does not build, a store that cannot be opened). A fixture that runs but
// fails its checks returns a Result with Pass false.
func Run(ctx context.Context, f *fixture.Fixture, opts ...Option) (*Result, error) {
	cfg := &config{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	built, err := f.Build()
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.Name, err)
	}
	fixtureFP, err := f.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.Name, err)
	}

	s := snapper.New(built.Pool, built.Registry,
		snapper.WithPolicy(built.Policy),
		snapper.WithLogger(cfg.logger),
		snapper.WithConcurrency(cfg.concurrency),
		snapper.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(RunID(f))),
	)
	defer s.Cleanup()

	res, err := s.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.Name, err)
	}

	var dump bytes.Buffer
	if err := s.Dump(&dump); err != nil {
		return nil, fmt.Errorf("fixture %s: dump: %w", f.Name, err)
	}

	out := &Result{Fixture: f.Name, Pass: true, Dump: dump.String(), Run: res}
	if out.ReportFingerprint, err = res.Fingerprint(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.Name, err)
	}

	for _, m := range f.Expect.Mismatches(fixture.Observed{
		Clusters:       len(res.Clusters),
		Contradictions: res.Contradictions,
		Forced:         res.Forced,
		Resolved:       res.Resolved,
		Unresolved:     res.Unresolved,
	}) {
		out.addError("expect %s", m)
	}
	for _, v := range CheckPrinciples(res) {
		out.addError("principle %s", v)
	}
	if err := checkRoundTrip(ctx, res, out.ReportFingerprint, store.RunMeta{
		Fixture:            f.Name,
		FixtureFingerprint: fixtureFP,
	}, out); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", f.Name, err)
	}

	return out, nil
}

// RunFile loads the fixture at path and runs it.
func RunFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	f, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	res, err := Run(ctx, f, opts...)
	if err != nil {
		return nil, err
	}
	res.Path = path
	return res, nil
}

// RunDir runs every fixture (.yaml, .yml, .cue) in dir, in file name
// order. It stops at the first fixture that cannot execute.
func RunDir(ctx context.Context, dir string, opts ...Option) ([]*Result, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.cue"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	results := make([]*Result, 0, len(paths))
	for _, path := range paths {
		res, err := RunFile(ctx, path, opts...)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// checkRoundTrip records res in a fresh in-memory store, reads it back and
// reports every difference on out.
func checkRoundTrip(ctx context.Context, res *snapper.Result, fingerprint string, meta store.RunMeta, out *Result) error {
	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.WriteRun(ctx, res, meta); err != nil {
		return err
	}
	stored, err := st.ReadRun(ctx, res.RunID)
	if err != nil {
		return err
	}

	rec := stored.Record
	if rec.ReportFingerprint != fingerprint {
		out.addError("store report fingerprint %s, live %s", rec.ReportFingerprint, fingerprint)
	}
	if rec.Forced != res.Forced || rec.Resolved != res.Resolved ||
		rec.Unresolved != res.Unresolved || rec.Contradictions != res.Contradictions {
		out.addError("store totals forced=%d resolved=%d unresolved=%d contradictions=%d, live %d %d %d %d",
			rec.Forced, rec.Resolved, rec.Unresolved, rec.Contradictions,
			res.Forced, res.Resolved, res.Unresolved, res.Contradictions)
	}
	if len(stored.Contradictions) != res.Contradictions {
		out.addError("store has %d contradictions, live %d", len(stored.Contradictions), res.Contradictions)
	}
	if len(stored.Clusters) != len(res.Clusters) {
		out.addError("store has %d clusters, live %d", len(stored.Clusters), len(res.Clusters))
		return nil
	}
	for i, cr := range res.Clusters {
		sc := stored.Clusters[i]
		if !slices.Equal(sc.Stack, cr.Stack) {
			out.addError("cluster %d: store stack %v, live %v", cr.Index, sc.Stack, cr.Stack)
		}
		if !slices.Equal(sc.Nodes, cr.Nodes) {
			out.addError("cluster %d: stored nodes differ", cr.Index)
		}
		if !slices.Equal(sc.Arcs, cr.Arcs) {
			out.addError("cluster %d: stored arcs differ", cr.Index)
		}
	}
	return nil
}
