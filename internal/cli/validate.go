package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tanglegraph/internal/fixture"
)

// ValidationResult reports one fixture file.
type ValidationResult struct {
	Path        string `json:"path"`
	Name        string `json:"name,omitempty"`
	Valid       bool   `json:"valid"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ValidationReport is the payload of the validate command.
type ValidationReport []ValidationResult

// String renders one line per fixture.
func (r ValidationReport) String() string {
	lines := make([]string, len(r))
	for i, v := range r {
		if v.Valid {
			lines[i] = fmt.Sprintf("ok   %s name=%s fingerprint=%s", v.Path, v.Name, v.Fingerprint)
		} else {
			lines[i] = fmt.Sprintf("FAIL %s: %s", v.Path, v.Error)
		}
	}
	return strings.Join(lines, "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <fixture>...",
		Short: "Validate fixtures and print their fingerprints",
		Long: `Load and validate graph fixtures without running them.

Every fixture is decoded strictly (unknown fields are errors), checked for
duplicate ids and dangling references, built into a pool, and
fingerprinted. Fixtures with the same graph share a fingerprint whether
they are written in YAML or CUE.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	report := make(ValidationReport, 0, len(paths))
	failed := 0
	for _, path := range paths {
		report = append(report, validateFixture(path))
		if !report[len(report)-1].Valid {
			failed++
		}
	}

	if err := formatter.Success(report); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d fixtures invalid", failed, len(paths)))
	}
	return nil
}

func validateFixture(path string) ValidationResult {
	res := ValidationResult{Path: path}
	f, err := fixture.Load(path)
	if err == nil {
		_, err = f.Build()
	}
	if err == nil {
		res.Fingerprint, err = f.Fingerprint()
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Name = f.Name
	res.Valid = true
	return res
}
