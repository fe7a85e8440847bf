package testutil

// FixedRunIDGenerator returns the same run ID every time.
//
// This enables deterministic debug dumps and golden comparison: the same
// graph with the same FixedRunIDGenerator produces byte-identical output.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements snapper.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
