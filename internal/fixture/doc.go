// Package fixture loads graph fixtures: file-backed descriptions of a node
// pool, its tangency arcs, pending merges, and scripted solver behavior.
//
// Fixtures are written in YAML or CUE with the same field names. Load picks
// the decoder by file extension; both paths reject unknown fields and run
// the same validation. Build turns a fixture into a populated graph.Pool
// and a solve.Registry whose solver replays the scripted outcomes.
package fixture
