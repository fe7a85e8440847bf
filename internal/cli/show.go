package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tanglegraph/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// RunView is the payload of the show command.
type RunView struct {
	*store.Run
}

// String renders the recorded run in the layout of the debug dump.
func (v RunView) String() string {
	r := v.Record
	var b strings.Builder
	fmt.Fprintf(&b, "run %s seq=%d policy=%s fixture=%s\n", r.ID, r.Seq, r.Policy, r.Fixture)
	fmt.Fprintf(&b, "  nodes=%d arcs=%d max_degree=%d forced=%d resolved=%d unresolved=%d contradictions=%d\n",
		r.Nodes, r.Arcs, r.MaxDegree, r.Forced, r.Resolved, r.Unresolved, r.Contradictions)
	fmt.Fprintf(&b, "  report %s", r.ReportFingerprint)
	for _, cr := range v.Clusters {
		fmt.Fprintf(&b, "\ncluster %d policy=%s nodes=%d arcs=%d max_degree=%d forced=%d roots=%v stack=%v",
			cr.Index, cr.Policy, cr.NodeCount, cr.ArcCount, cr.MaxDegree, cr.Forced, cr.Roots, cr.Stack)
		for _, n := range cr.Nodes {
			fmt.Fprintf(&b, "\n  node %s", n)
		}
		for _, a := range cr.Arcs {
			fmt.Fprintf(&b, "\n  arc %s", a)
		}
	}
	for _, c := range v.Contradictions {
		fmt.Fprintf(&b, "\ncontradiction %s", c)
	}
	return b.String()
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run",
		Long: `Show a recorded run with its clusters, final node and arc states, and
any contradictions the consistency checker reported.

Example:
  tanglegraph show --db ./runs.db 0192f3a4-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(cmd.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %s not found", runID), err)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to read run", err)
	}

	if err := formatter.Respond(CLIResponse{Status: "ok", Data: RunView{run}, RunID: runID}); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
