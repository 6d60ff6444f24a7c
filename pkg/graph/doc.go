// Package graph provides the shared data plane for the Casewire blackboard.
//
// # Overview
//
// The graph is the central shared state that all Casewire components
// (ingestion, analysis agents, live viewers) read and write. It implements
// the Blackboard architectural pattern: independent knowledge sources
// collaborate by mutating a shared structure rather than calling each other
// directly. Coordination lives in the scheduler; this package is pure data
// plus queries.
//
// # Core Concepts
//
// Nodes are the units of evidence: tip reports, external sources, fact
// checks and media variants. Every node belongs to exactly one case, fixed
// at creation. Node attributes are an open string-keyed map and are mutated
// only by shallow merge through the Store.
//
// Edges are directed, typed relationships between nodes (similar_to,
// repost_of, mutation_of, debunked_by, amplified_by). Endpoints are node
// IDs, never ownership: deleting a node cascades to every edge that
// references it.
//
// Cases are never stored. A case is derived by grouping the nodes and edges
// that share a case ID; display metadata is computed from report nodes with
// optional operator overrides layered on top.
//
// Events describe a single mutation (add_node, add_edge, update_node,
// delete_node) as a tagged variant with a typed payload per kind. The
// broadcaster derives them after every mutation and forwards them to the
// scheduler.
//
// # Concurrency
//
// The Store is guarded by an explicit RWMutex. The dispatch loop is
// single-threaded, but the ingestion path runs on its own goroutines, so
// mutual exclusion cannot be assumed to fall out of the runtime.
package graph
