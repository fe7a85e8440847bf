package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tanglegraph/internal/testutil"
)

const squareFixture = `name: square
policy: strong
nodes:
  - id: f1
  - id: f2
  - id: f3
    outcome: failure
  - id: f4
arcs:
  - {a: f1, b: f2}
  - {a: f2, b: f3}
  - {a: f3, b: f4}
  - {a: f4, b: f1}
expect:
  clusters: 1
  contradictions: 0
  forced: 3
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execCommand runs cmd with args and returns what it wrote to stdout.
// Log lines go to stderr and are discarded.
func execCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func newTestRun(format string) *RunOptions {
	return &RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      testutil.NewFixedRunIDGenerator("test-run"),
	}
}

func TestRun_TextSummary(t *testing.T) {
	path := writeFixture(t, "square.yaml", squareFixture)

	out, err := execCommand(t, newRunCommand(newTestRun("text")), path)
	require.NoError(t, err)
	assert.Contains(t, out, "run test-run fixture=square policy=strong")
	assert.Contains(t, out, "clusters=1 nodes=4 arcs=4 max_degree=2 forced=3")
	assert.Contains(t, out, "resolved=1 unresolved=3 contradictions=0")
	assert.NotContains(t, out, "(recorded)")
	assert.NotContains(t, out, "expectation")
}

func TestRun_JSON(t *testing.T) {
	path := writeFixture(t, "square.yaml", squareFixture)

	out, err := execCommand(t, newRunCommand(newTestRun("json")), path)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		RunID  string `json:"run_id"`
		Data   struct {
			Fixture            string `json:"fixture"`
			FixtureFingerprint string `json:"fixture_fingerprint"`
			ReportFingerprint  string `json:"report_fingerprint"`
			Result             struct {
				Policy string `json:"policy"`
				Forced int    `json:"forced"`
			} `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-run", resp.RunID)
	assert.Equal(t, "square", resp.Data.Fixture)
	assert.Len(t, resp.Data.FixtureFingerprint, 64)
	assert.Len(t, resp.Data.ReportFingerprint, 64)
	assert.Equal(t, "strong", resp.Data.Result.Policy)
	assert.Equal(t, 3, resp.Data.Result.Forced)
}

func TestRun_ReportFingerprintStable(t *testing.T) {
	path := writeFixture(t, "square.yaml", squareFixture)

	fingerprint := func(concurrency string) string {
		opts := newTestRun("json")
		opts.RunIDs = nil
		out, err := execCommand(t, newRunCommand(opts), "--concurrency", concurrency, path)
		require.NoError(t, err)
		var resp struct {
			Data struct {
				ReportFingerprint string `json:"report_fingerprint"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.ReportFingerprint
	}

	assert.Equal(t, fingerprint("1"), fingerprint("4"))
}

func TestRun_ExpectationMismatch(t *testing.T) {
	path := writeFixture(t, "square.yaml", squareFixture+"  unresolved: 0\n")

	out, err := execCommand(t, newRunCommand(newTestRun("text")), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "fixture expectations not met")
	assert.Contains(t, out, "expectation unresolved: expected 0, got 3")
}

func TestRun_PolicyOverrideSkipsExpectations(t *testing.T) {
	path := writeFixture(t, "square.yaml", squareFixture+"  unresolved: 0\n")

	out, err := execCommand(t, newRunCommand(newTestRun("text")), "--policy", "nosnap", path)
	require.NoError(t, err)
	assert.Contains(t, out, "policy=nosnap")
	assert.NotContains(t, out, "expectation")
}

func TestRun_SamePolicyOverrideKeepsExpectations(t *testing.T) {
	path := writeFixture(t, "square.yaml", squareFixture+"  unresolved: 0\n")

	_, err := execCommand(t, newRunCommand(newTestRun("text")), "--policy", "strong", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRun_InvalidPolicy(t *testing.T) {
	path := writeFixture(t, "square.yaml", squareFixture)

	out, err := execCommand(t, newRunCommand(newTestRun("text")), "--policy", "loose", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestRun_MissingFixture(t *testing.T) {
	out, err := execCommand(t, newRunCommand(newTestRun("json")), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeFixture, resp.Error.Code)
}

func TestRun_InvalidFixture(t *testing.T) {
	path := writeFixture(t, "bad.yaml", "name: bad\nnodes:\n  - id: f1\narcs:\n  - {a: f1, b: f9}\n")

	out, err := execCommand(t, newRunCommand(newTestRun("text")), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "failed to load fixture")
}

func TestRun_RequiresFixtureArg(t *testing.T) {
	_, err := execCommand(t, newRunCommand(newTestRun("text")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
