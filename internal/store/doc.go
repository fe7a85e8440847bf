// Package store provides SQLite-backed run history for snapper runs.
//
// Each recorded run keeps:
//   - Runs: one row per run with totals and fingerprints
//   - Clusters: per-cluster policy, roots and solve stack
//   - Nodes and Arcs: final directions and outcomes
//   - Contradictions: consistency checker findings
//
// # Ordering
//
// Runs carry a seq INTEGER assigned at write time. Listing uses
// ORDER BY seq ASC, id ASC COLLATE BINARY so results never depend on
// wall time. Child rows are ordered by cluster index, then identity.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Root and stack lists are stored as RFC 8785 canonical JSON so rows for
// identical runs are byte-identical.
package store
