// Package harness runs graph fixtures as conformance tests.
//
// Every fixture is built, run through the snapper with a fixed run ID,
// recorded in an in-memory store and read back. A fixture passes when its
// expectations hold, the run satisfies the pipeline's structural
// principles, and the stored run matches the live one.
//
// # Principles
//
// Independently of any fixture expectation, every run must satisfy:
//
//   - partition: clusters cover every node and arc of the pool once
//   - stack: each cluster's solve stack lists each of its nodes once
//   - order: every directed arc's source precedes its target in the stack
//   - oriented: no arc is left without a direction
//   - forced: the forced count equals the forced orientation steps
//
// # Golden dumps
//
// RunWithGolden compares the run's debug dump against
// testdata/golden/<fixture name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
