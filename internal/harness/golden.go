package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs the fixture at path, fails t on any check error, and
// compares the debug dump against testdata/golden/<fixture name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, path string, opts ...Option) *Result {
	t.Helper()

	res, err := RunFile(context.Background(), path, opts...)
	if err != nil {
		t.Fatalf("run %s: %v", path, err)
	}
	for _, e := range res.Errors {
		t.Errorf("%s: %s", res.Fixture, e)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, res.Fixture, []byte(res.Dump))
	return res
}
