package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/tanglegraph/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Fixture  string
	Limit    int
}

// RunList is the payload of the runs command.
type RunList []store.RunRecord

// String renders the runs as an aligned table.
func (l RunList) String() string {
	if len(l) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tPOLICY\tNODES\tARCS\tFORCED\tUNRESOLVED\tCONTRADICTIONS\tFIXTURE")
	for _, r := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Seq, r.ID, r.Policy, r.Nodes, r.Arcs, r.Forced, r.Unresolved, r.Contradictions, r.Fixture)
	}
	tw.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List runs recorded with "tanglegraph run --db", oldest first.

Examples:
  tanglegraph runs --db ./runs.db
  tanglegraph runs --db ./runs.db --fixture <fingerprint> --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "only runs of the fixture with this fingerprint")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of runs to list")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), store.ListOptions{
		FixtureFingerprint: opts.Fixture,
		Limit:              opts.Limit,
	})
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
	}

	if err := formatter.Success(RunList(runs)); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
