package fixture

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/solve"
)

func testdata(name string) string { return filepath.Join("testdata", name) }

func intPtr(v int) *int { return &v }

// ============================================================================
// Loading
// ============================================================================

func TestLoad_YAML(t *testing.T) {
	f, err := Load(testdata("square.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "square", f.Name)
	assert.Equal(t, "strong", f.Policy)
	require.Len(t, f.Nodes, 4)
	assert.Equal(t, "failure", f.Nodes[2].Outcome)
	require.Len(t, f.Arcs, 4)
	assert.True(t, f.Arcs[0].Agrees(), "agree defaults to true")
	require.NotNil(t, f.Expect)
	assert.Equal(t, 3, *f.Expect.Forced)
}

func TestLoad_CUE(t *testing.T) {
	f, err := Load(testdata("square.cue"))
	require.NoError(t, err)

	assert.Equal(t, "square", f.Name)
	require.Len(t, f.Nodes, 4)
	assert.Equal(t, "face", f.Nodes[0].Kind)
	assert.Equal(t, "failure", f.Nodes[2].Outcome)
	require.Len(t, f.Arcs, 4)
	require.NotNil(t, f.Arcs[3].Agree)
	assert.Equal(t, "f4", f.Arcs[3].A)
	require.NotNil(t, f.Expect)
	assert.Equal(t, 1, *f.Expect.Clusters)
	assert.Nil(t, f.Expect.Forced)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	for _, name := range []string{"unknown_field.yaml", "unknown_field.cue"} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(testdata(name))
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
		})
	}
}

func TestLoad_RejectsUnknownExtension(t *testing.T) {
	_, err := Load(testdata("notes.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported fixture extension")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(testdata("does-not-exist.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fixture file")
}

func TestParseCUE_SchemaViolation(t *testing.T) {
	_, err := ParseCUE("bad.cue", []byte(`
name: "bad"
nodes: [{id: "f1", outcome: "maybe"}]
`))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
}

func TestParseCUE_SyntaxError(t *testing.T) {
	_, err := ParseCUE("broken.cue", []byte(`name: "broken`))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
}

// ============================================================================
// Validation
// ============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "nodes: [{id: f1}]", "name is required"},
		{"no nodes", "name: x", "nodes list is required"},
		{"empty id", "name: x\nnodes: [{id: ''}]", "nodes[0]: id is required"},
		{"duplicate id", "name: x\nnodes: [{id: f1}, {id: f1}]", `nodes[1]: duplicate id "f1"`},
		{"bad outcome", "name: x\nnodes: [{id: f1, outcome: maybe}]", "nodes[0]"},
		{"unscriptable outcome", "name: x\nnodes: [{id: f1, outcome: not-attempted}]", "cannot be scripted"},
		{"bad policy", "name: x\npolicy: loose\nnodes: [{id: f1}]", "policy"},
		{"unknown arc endpoint", "name: x\nnodes: [{id: f1}]\narcs: [{a: f1, b: f2}]", `arcs[0]: unknown node "f2"`},
		{"self arc", "name: x\nnodes: [{id: f1}]\narcs: [{a: f1, b: f1}]", "endpoints must be distinct"},
		{"unknown survivor", "name: x\nnodes: [{id: f1}]\nmerges: [{survivor: f9, doomed: f1}]", "unknown survivor"},
		{"self merge", "name: x\nnodes: [{id: f1}]\nmerges: [{survivor: f1, doomed: f1}]", "cannot absorb itself"},
		{
			"doomed twice",
			"name: x\nnodes: [{id: f1}, {id: f2}, {id: f3}]\nmerges: [{survivor: f1, doomed: f2}, {survivor: f3, doomed: f2}]",
			`"f2" was already absorbed`,
		},
		{
			"absorbed survivor",
			"name: x\nnodes: [{id: f1}, {id: f2}, {id: f3}]\nmerges: [{survivor: f1, doomed: f2}, {survivor: f2, doomed: f3}]",
			`survivor "f2" was already absorbed`,
		},
		{"negative expectation", "name: x\nnodes: [{id: f1}]\nexpect: {forced: -1}", "expect.forced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML("inline.yaml", []byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSnapPolicy(t *testing.T) {
	f := &Fixture{}
	p, err := f.SnapPolicy()
	require.NoError(t, err)
	assert.Equal(t, solve.Strong, p, "empty policy defaults to strong")

	f.Policy = "no-snap"
	p, err = f.SnapPolicy()
	require.NoError(t, err)
	assert.Equal(t, solve.NoSnap, p)
}

// ============================================================================
// Build
// ============================================================================

func TestBuild_Square(t *testing.T) {
	f, err := Load(testdata("square.yaml"))
	require.NoError(t, err)

	b, err := f.Build()
	require.NoError(t, err)

	assert.Equal(t, solve.Strong, b.Policy)
	assert.Equal(t, 4, b.Pool.Len())
	assert.Equal(t, 4, b.Pool.ArcCount())
	require.NoError(t, b.Pool.Validate())

	f1 := b.Nodes["f1"]
	require.NotNil(t, f1)
	assert.Equal(t, graph.NodeID(1), f1.ID(), "nodes register in fixture order")
	assert.Equal(t, "f1", f1.Subject())
	assert.Equal(t, graph.DefaultNodeKind, f1.Kind())
	assert.Equal(t, "f3", b.Names[b.Nodes["f3"].ID()])

	for _, a := range b.Pool.Arcs() {
		assert.Equal(t, DefaultArcKind, a.Kind())
	}

	ctx := context.Background()
	assert.Equal(t, graph.Success, b.Solver.Solve(ctx, f1))
	assert.Equal(t, graph.Failure, b.Solver.Solve(ctx, b.Nodes["f3"]))
	assert.True(t, b.Solver.CheckStatus(ctx, f1, b.Nodes["f2"]))

	s, ok := b.Registry.Lookup(graph.DefaultNodeKind)
	require.True(t, ok)
	assert.Same(t, b.Solver, s)
}

func TestBuild_Merges(t *testing.T) {
	f, err := Load(testdata("merged.yaml"))
	require.NoError(t, err)

	b, err := f.Build()
	require.NoError(t, err)

	assert.Equal(t, 3, b.Pool.Len())
	assert.Equal(t, 3, b.Pool.ArcCount(), "self-loop and parallel arc are dropped")
	require.NoError(t, b.Pool.Validate())

	require.Len(t, b.Merges, 1)
	assert.Equal(t, 1, b.Merges[0].DroppedSelfLoops)
	assert.Equal(t, 1, b.Merges[0].MergedParallel)

	f1 := b.Nodes["f1"]
	assert.Same(t, f1, b.Nodes["f4"], "absorbed id maps to its survivor")
	assert.Len(t, b.Names, 3)
	assert.NotContains(t, b.Names, graph.NodeID(4))

	ctx := context.Background()
	assert.False(t, b.Solver.CheckStatus(ctx, b.Nodes["f3"], f1),
		"disagreement on f3-f4 carries over to the survivor")
	assert.False(t, b.Solver.CheckStatus(ctx, f1, b.Nodes["f3"]))
	assert.True(t, b.Solver.CheckStatus(ctx, f1, b.Nodes["f2"]))

	assert.False(t, f1.SurfaceModified())
	b.Solver.Solve(ctx, f1)
	assert.True(t, f1.SurfaceModified(), "modifies marks the surface on solve")
}

func TestBuild_KindsAndDisagreement(t *testing.T) {
	f, err := Load(testdata("disagree.yaml"))
	require.NoError(t, err)

	b, err := f.Build()
	require.NoError(t, err)

	assert.Equal(t, solve.Weak, b.Policy)
	assert.Equal(t, "edge-loop", b.Nodes["f3"].Kind())

	a2, ok := b.Nodes["f2"].ArcTo(b.Nodes["f3"])
	require.True(t, ok)
	assert.Equal(t, "seam", a2.Kind())

	ctx := context.Background()
	assert.False(t, b.Solver.CheckStatus(ctx, b.Nodes["f2"], b.Nodes["f1"]))
	assert.True(t, b.Solver.CheckStatus(ctx, b.Nodes["f2"], b.Nodes["f3"]))

	s, ok := b.Registry.Lookup("edge-loop")
	require.True(t, ok, "scripted solver is the registry default")
	assert.Same(t, b.Solver, s)
}

func TestBuild_RejectsInvalid(t *testing.T) {
	f := &Fixture{Name: "x"}
	_, err := f.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fixture")
}

// ============================================================================
// Fingerprint
// ============================================================================

func TestFingerprint_YAMLAndCUEAgree(t *testing.T) {
	y, err := Load(testdata("square.yaml"))
	require.NoError(t, err)
	c, err := Load(testdata("square.cue"))
	require.NoError(t, err)

	fy, err := y.Fingerprint()
	require.NoError(t, err)
	fc, err := c.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, fy, fc, "defaults and explicit values fingerprint the same")
	assert.Len(t, fy, 64)
}

func TestFingerprint_ChangesWithGraph(t *testing.T) {
	f, err := Load(testdata("square.yaml"))
	require.NoError(t, err)
	before, err := f.Fingerprint()
	require.NoError(t, err)

	f.Nodes[2].Outcome = "success"
	after, err := f.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	f.Nodes[2].Outcome = "failure"
	f.Policy = "weak"
	weak, err := f.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, before, weak)
}

func TestFingerprint_IgnoresNameAndExpectations(t *testing.T) {
	f, err := Load(testdata("square.yaml"))
	require.NoError(t, err)
	before, err := f.Fingerprint()
	require.NoError(t, err)

	f.Name = "renamed"
	f.Description = ""
	f.Expect = nil
	after, err := f.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// ============================================================================
// Expectations
// ============================================================================

func TestMismatches(t *testing.T) {
	e := &Expectation{Clusters: intPtr(1), Forced: intPtr(3)}

	assert.Empty(t, e.Mismatches(Observed{Clusters: 1, Forced: 3, Unresolved: 9}))
	assert.Equal(t,
		[]string{"clusters: expected 1, got 2", "forced: expected 3, got 0"},
		e.Mismatches(Observed{Clusters: 2}),
	)

	var none *Expectation
	assert.Empty(t, none.Mismatches(Observed{Clusters: 5}))
}
