package cli

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/roach88/tanglegraph/internal/snapper"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Policy  string
	Execute bool

	// RunIDs overrides the run ID generator (for testing).
	RunIDs snapper.RunIDGenerator
}

// DumpOutput is the JSON payload of the dump command.
type DumpOutput struct {
	Fixture string `json:"fixture"`
	Dump    string `json:"dump"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return newDumpCommand(&DumpOptions{RootOptions: rootOpts})
}

func newDumpCommand(opts *DumpOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <fixture>",
		Short: "Print the debug dump of a prepared fixture",
		Long: `Decompose, orient and order a fixture, then print the debug dump:
clusters, orientation steps, node degrees, arc directions and solve stacks.
With --execute the solvers also run and the dump includes outcomes and
the consistency report.

Example:
  tanglegraph dump ./fixtures/square.yaml
  tanglegraph dump --execute --policy weak ./fixtures/square.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", "", "snap policy (strong|weak|nosnap), overrides the fixture")
	cmd.Flags().BoolVar(&opts.Execute, "execute", false, "run the solvers before dumping")

	return cmd
}

func runDump(opts *DumpOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	lf, err := loadFixture(path, opts.Policy)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeFixture, "failed to load fixture", err)
	}

	snapOpts := []snapper.Option{
		snapper.WithPolicy(lf.Policy),
		snapper.WithLogger(newLogger(formatter).With("fixture", lf.Fixture.Name)),
	}
	if opts.RunIDs != nil {
		snapOpts = append(snapOpts, snapper.WithRunIDGenerator(opts.RunIDs))
	}
	s := snapper.New(lf.Built.Pool, lf.Built.Registry, snapOpts...)
	defer s.Cleanup()

	if opts.Execute {
		_, err = s.Run(cmd.Context())
	} else {
		err = s.Prepare(cmd.Context())
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeRun, "failed to prepare fixture", err)
	}

	var buf bytes.Buffer
	if err := s.Dump(&buf); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "failed to render dump", err)
	}

	if formatter.JSON() {
		err = formatter.Success(DumpOutput{Fixture: lf.Fixture.Name, Dump: buf.String()})
	} else {
		_, err = formatter.Writer.Write(buf.Bytes())
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
