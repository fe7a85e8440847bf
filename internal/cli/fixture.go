package cli

import (
	"fmt"

	"github.com/roach88/tanglegraph/internal/fixture"
	"github.com/roach88/tanglegraph/internal/solve"
)

// loadedFixture is a fixture built and ready to run.
type loadedFixture struct {
	Path        string
	Fixture     *fixture.Fixture
	Built       *fixture.Built
	Policy      solve.Policy
	Overridden  bool
	Fingerprint string
}

// loadFixture loads, builds and fingerprints the fixture at path. A
// non-empty policy overrides the fixture's own.
func loadFixture(path, policy string) (*loadedFixture, error) {
	f, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	built, err := f.Build()
	if err != nil {
		return nil, err
	}
	fp, err := f.Fingerprint()
	if err != nil {
		return nil, err
	}

	lf := &loadedFixture{Path: path, Fixture: f, Built: built, Policy: built.Policy, Fingerprint: fp}
	if policy != "" {
		p, err := solve.ParsePolicy(policy)
		if err != nil {
			return nil, fmt.Errorf("--policy: %w", err)
		}
		lf.Overridden = p != built.Policy
		lf.Policy = p
	}
	return lf, nil
}
