package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tanglegraph/internal/fixture"
	"github.com/roach88/tanglegraph/internal/snapper"
	"github.com/roach88/tanglegraph/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	Policy      string
	Concurrency int

	// RunIDs overrides the run ID generator (for testing).
	// If nil, snapper's UUIDv7 generator is used.
	RunIDs snapper.RunIDGenerator
}

// RunOutput is the payload of a completed run.
type RunOutput struct {
	Fixture            string          `json:"fixture"`
	FixtureFingerprint string          `json:"fixture_fingerprint"`
	ReportFingerprint  string          `json:"report_fingerprint"`
	Recorded           bool            `json:"recorded"`
	Mismatches         []string        `json:"mismatches,omitempty"`
	Result             *snapper.Result `json:"result"`
}

// String renders the text summary.
func (o *RunOutput) String() string {
	r := o.Result
	var b strings.Builder
	fmt.Fprintf(&b, "run %s fixture=%s policy=%s\n", r.RunID, o.Fixture, r.Policy)
	fmt.Fprintf(&b, "  clusters=%d nodes=%d arcs=%d max_degree=%d forced=%d\n",
		len(r.Clusters), r.Nodes, r.Arcs, r.MaxDegree, r.Forced)
	fmt.Fprintf(&b, "  resolved=%d unresolved=%d contradictions=%d\n", r.Resolved, r.Unresolved, r.Contradictions)
	fmt.Fprintf(&b, "  report %s", o.ReportFingerprint)
	if o.Recorded {
		b.WriteString(" (recorded)")
	}
	for _, c := range r.AllContradictions() {
		fmt.Fprintf(&b, "\n  contradiction %s", c)
	}
	for _, m := range o.Mismatches {
		fmt.Fprintf(&b, "\n  expectation %s", m)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	return newRunCommand(opts)
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <fixture>",
		Short: "Run the resolution pipeline over a fixture",
		Long: `Run the full pipeline over a graph fixture: decompose into clusters,
orient each cluster, build its solve stack, execute the scripted solvers
and verify the outcomes.

Exits 1 when the consistency checker reports contradictions or the
fixture's expectations are not met.

Example:
  tanglegraph run ./fixtures/square.yaml
  tanglegraph run --policy weak --db ./runs.db ./fixtures/square.cue
  tanglegraph run --concurrency 4 --format json ./fixtures/mesh.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixture(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "snap policy (strong|weak|nosnap), overrides the fixture")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 1, "clusters executed in parallel")

	return cmd
}

func runFixture(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(formatter)

	lf, err := loadFixture(path, opts.Policy)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeFixture, "failed to load fixture", err)
	}
	formatter.VerboseLog("loaded fixture %s (%s) policy=%s", lf.Fixture.Name, lf.Fingerprint, lf.Policy)

	snapOpts := []snapper.Option{
		snapper.WithPolicy(lf.Policy),
		snapper.WithLogger(logger.With("fixture", lf.Fixture.Name)),
		snapper.WithConcurrency(opts.Concurrency),
	}
	if opts.RunIDs != nil {
		snapOpts = append(snapOpts, snapper.WithRunIDGenerator(opts.RunIDs))
	}
	s := snapper.New(lf.Built.Pool, lf.Built.Registry, snapOpts...)
	defer s.Cleanup()

	res, err := s.Run(cmd.Context())
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeRun, "run failed", err)
	}

	out := &RunOutput{Fixture: lf.Fixture.Name, FixtureFingerprint: lf.Fingerprint, Result: res}
	if out.ReportFingerprint, err = res.Fingerprint(); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeRun, "failed to fingerprint run", err)
	}

	if opts.Database != "" {
		if err := recordRun(cmd, opts.Database, res, store.RunMeta{
			Fixture:            path,
			FixtureFingerprint: lf.Fingerprint,
		}); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to record run", err)
		}
		out.Recorded = true
	}

	if lf.Overridden {
		formatter.VerboseLog("policy overridden to %s, skipping fixture expectations", lf.Policy)
	} else {
		out.Mismatches = lf.Fixture.Expect.Mismatches(observed(res))
	}

	if err := formatter.Respond(CLIResponse{Status: "ok", Data: out, RunID: res.RunID}); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if !res.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("run reported %d contradictions", res.Contradictions))
	}
	if len(out.Mismatches) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("fixture expectations not met: %s",
			strings.Join(out.Mismatches, "; ")))
	}
	return nil
}

func recordRun(cmd *cobra.Command, path string, res *snapper.Result, meta store.RunMeta) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.WriteRun(cmd.Context(), res, meta)
}

func observed(res *snapper.Result) fixture.Observed {
	return fixture.Observed{
		Clusters:       len(res.Clusters),
		Contradictions: res.Contradictions,
		Forced:         res.Forced,
		Resolved:       res.Resolved,
		Unresolved:     res.Unresolved,
	}
}
