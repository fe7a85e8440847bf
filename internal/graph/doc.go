// Package graph provides the node/arc primitives of the tangency-cluster
// engine, the Pool they are registered into, and the decomposition of a
// Pool into independent Clusters.
//
// This package contains the data model only. Orientation, ordering,
// execution and verification live in sibling packages (orient, order,
// solve, verify) and manipulate the model through the methods exported
// here; graph imports nothing internal.
//
// Ownership:
//   - A Node or Arc belongs to exactly one Pool, or to exactly one Cluster
//     after Decompose. Nothing is shared between clusters.
//   - Identities (NodeID, ArcID) are assigned by the Pool in registration
//     order and never reused. They are the deterministic tie-break key
//     used by every algorithm in the engine.
//
// Invariants maintained by every mutating method:
//   - An Arc always references two distinct Nodes.
//   - A Node's Outgoing and Incoming caches are disjoint and together hold
//     exactly the incident arcs whose Direction is set.
//   - At most one arc connects a given pair of nodes (merge policy, see
//     Pool.Connect and Pool.Absorb).
//
// The model is not safe for concurrent mutation. Distinct clusters may be
// processed concurrently because they share no nodes or arcs.
package graph
