package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a node or edge ID does not exist in the store.
var ErrNotFound = errors.New("not found")

// IsNotFound returns true if the error is a store "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the in-memory graph for all cases. It is volatile and
// single-process: contents are lost when the engine stops.
//
// The store is pure data plus queries - no scheduling logic, no I/O. It is
// safe for concurrent use: the ingestion path and the dispatch loop both
// mutate it, so access is guarded by an explicit RWMutex rather than relying
// on single-loop execution.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string]*Edge
	out   map[string][]string // node ID -> outgoing edge IDs
	in    map[string][]string // node ID -> incoming edge IDs
	meta  map[string]CaseMetadata
}

// NewStore creates an empty graph store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
		meta:  make(map[string]CaseMetadata),
	}
}

// AddNode inserts a node. Re-adding an existing ID overwrites its attributes
// (idempotent writes are safe) but a node can never move to another case:
// the case ID is immutable after creation.
func (s *Store) AddNode(n *Node) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("invalid node: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.nodes[n.ID]; ok && existing.CaseID != n.CaseID {
		return fmt.Errorf("node %s already belongs to case %s", n.ID, existing.CaseID)
	}
	s.nodes[n.ID] = n.Clone()
	return nil
}

// AddEdge inserts a directed edge and indexes it in both endpoint adjacency
// lists. Endpoints are not required to exist: they are weak references.
func (s *Store) AddEdge(e *Edge) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid edge: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.edges[e.ID]; ok {
		return fmt.Errorf("edge %s already exists", e.ID)
	}
	s.edges[e.ID] = e.Clone()
	s.out[e.SourceID] = append(s.out[e.SourceID], e.ID)
	s.in[e.TargetID] = append(s.in[e.TargetID], e.ID)
	return nil
}

// UpdateNode merges attrs into the node's attribute map (shallow key
// overwrite, never replacement) and returns a copy of the updated node.
// Returns ErrNotFound if the ID does not exist.
func (s *Store) UpdateNode(id string, attrs map[string]any) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	for k, v := range attrs {
		n.Attrs[k] = v
	}
	return n.Clone(), nil
}

// DeleteNode removes a node and cascades to every edge that references it as
// source or target, purging the adjacency index so no dangling references
// survive. Returns the number of edges removed, or ErrNotFound for a missing
// ID.
func (s *Store) DeleteNode(id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return 0, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}

	removed := make(map[string]struct{})
	for _, edgeID := range s.out[id] {
		removed[edgeID] = struct{}{}
	}
	for _, edgeID := range s.in[id] {
		removed[edgeID] = struct{}{}
	}

	for edgeID := range removed {
		e := s.edges[edgeID]
		delete(s.edges, edgeID)
		s.out[e.SourceID] = dropID(s.out[e.SourceID], edgeID)
		s.in[e.TargetID] = dropID(s.in[e.TargetID], edgeID)
	}
	delete(s.out, id)
	delete(s.in, id)
	delete(s.nodes, id)

	return len(removed), nil
}

// GetNode returns a copy of the node, or ErrNotFound.
func (s *Store) GetNode(id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return n.Clone(), nil
}

// NodesForCase returns copies of all nodes in a case, ordered by creation time.
func (s *Store) NodesForCase(caseID string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []*Node
	for _, n := range s.nodes {
		if n.CaseID == caseID {
			nodes = append(nodes, n.Clone())
		}
	}
	sortNodes(nodes)
	return nodes
}

// NodesByKind returns copies of the case's nodes of one kind, ordered by
// creation time.
func (s *Store) NodesByKind(caseID string, kind NodeKind) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []*Node
	for _, n := range s.nodes {
		if n.CaseID == caseID && n.Kind == kind {
			nodes = append(nodes, n.Clone())
		}
	}
	sortNodes(nodes)
	return nodes
}

// EdgesForNode returns copies of every edge touching the node, outgoing
// first, then incoming.
func (s *Store) EdgesForNode(id string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*Edge
	for _, edgeID := range s.out[id] {
		edges = append(edges, s.edges[edgeID].Clone())
	}
	for _, edgeID := range s.in[id] {
		edges = append(edges, s.edges[edgeID].Clone())
	}
	return edges
}

// OutgoingEdges returns copies of the edges whose source is the node.
func (s *Store) OutgoingEdges(id string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*Edge
	for _, edgeID := range s.out[id] {
		edges = append(edges, s.edges[edgeID].Clone())
	}
	return edges
}

// EdgesForCase returns copies of all edges in a case.
func (s *Store) EdgesForCase(caseID string) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var edges []*Edge
	for _, e := range s.edges {
		if e.CaseID == caseID {
			edges = append(edges, e.Clone())
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].ID < edges[j].ID
		}
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})
	return edges
}

// ReportsWithHash returns copies of every report node carrying a perceptual
// hash, across all cases, excluding the given node ID. Used by media
// repost detection.
func (s *Store) ReportsWithHash(excludeID string) []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nodes []*Node
	for _, n := range s.nodes {
		if n.Kind != NodeKindReport || n.ID == excludeID {
			continue
		}
		if hash, _ := n.Attrs["phash"].(string); hash != "" {
			nodes = append(nodes, n.Clone())
		}
	}
	sortNodes(nodes)
	return nodes
}

// CaseIDs returns every case ID that has at least one node or edge.
func (s *Store) CaseIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range s.nodes {
		seen[n.CaseID] = struct{}{}
	}
	for _, e := range s.edges {
		seen[e.CaseID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
}

func dropID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
