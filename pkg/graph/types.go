package graph

import (
	"fmt"
	"time"
)

// NodeKind identifies the kind of evidence a node represents.
type NodeKind string

const (
	// NodeKindReport is a submitted tip report
	NodeKindReport NodeKind = "report"

	// NodeKindExternalSource is a discovered external corroboration source
	NodeKindExternalSource NodeKind = "external_source"

	// NodeKindFactCheck is a published fact-check matched against a claim
	NodeKindFactCheck NodeKind = "fact_check"

	// NodeKindMediaVariant is a derived or altered copy of report media
	NodeKindMediaVariant NodeKind = "media_variant"
)

// EdgeKind identifies the relationship an edge asserts between two nodes.
type EdgeKind string

const (
	// EdgeKindSimilarTo links reports judged to describe the same incident
	EdgeKindSimilarTo EdgeKind = "similar_to"

	// EdgeKindRepostOf links near-identical media (Hamming distance 0-5)
	EdgeKindRepostOf EdgeKind = "repost_of"

	// EdgeKindMutationOf links altered derivative media (Hamming distance 6-15)
	EdgeKindMutationOf EdgeKind = "mutation_of"

	// EdgeKindDebunkedBy links a report to a fact-check that contradicts it
	EdgeKindDebunkedBy EdgeKind = "debunked_by"

	// EdgeKindAmplifiedBy links a report to an account or source spreading it
	EdgeKindAmplifiedBy EdgeKind = "amplified_by"
)

// Role is the semantic role the classifier assigns to a report node.
type Role string

const (
	// RoleOriginator is the earliest report in the spread timeline
	RoleOriginator Role = "originator"

	// RoleAmplifier reposted existing media unchanged
	RoleAmplifier Role = "amplifier"

	// RoleMutator altered existing media before sharing it
	RoleMutator Role = "mutator"

	// RoleUnwittingSharer shared without links to any external source
	RoleUnwittingSharer Role = "unwitting_sharer"
)

// Node is a single piece of evidence on the case board.
// Nodes are owned exclusively by the Store; callers receive copies and
// mutate attributes only via Store.UpdateNode (shallow key overwrite).
type Node struct {
	ID        string         `json:"id"`
	Kind      NodeKind       `json:"node_type"`
	CaseID    string         `json:"case_id"` // immutable after creation
	Attrs     map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Edge is a directed, typed relationship between two nodes.
// Endpoints are weak references by ID - an edge never owns its nodes.
type Edge struct {
	ID        string         `json:"id"`
	Kind      EdgeKind       `json:"edge_type"`
	SourceID  string         `json:"source_id"`
	TargetID  string         `json:"target_id"`
	CaseID    string         `json:"case_id"`
	Attrs     map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewNode constructs a node with its creation timestamp set.
// A nil attrs map is replaced with an empty one.
func NewNode(id string, kind NodeKind, caseID string, attrs map[string]any) *Node {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Node{
		ID:        id,
		Kind:      kind,
		CaseID:    caseID,
		Attrs:     attrs,
		CreatedAt: time.Now().UTC(),
	}
}

// NewEdge constructs an edge with its creation timestamp set.
func NewEdge(id string, kind EdgeKind, sourceID, targetID, caseID string, attrs map[string]any) *Edge {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Edge{
		ID:        id,
		Kind:      kind,
		SourceID:  sourceID,
		TargetID:  targetID,
		CaseID:    caseID,
		Attrs:     attrs,
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a copy of the node with its own attribute map.
func (n *Node) Clone() *Node {
	cp := *n
	cp.Attrs = make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		cp.Attrs[k] = v
	}
	return &cp
}

// Clone returns a copy of the edge with its own attribute map.
func (e *Edge) Clone() *Edge {
	cp := *e
	cp.Attrs = make(map[string]any, len(e.Attrs))
	for k, v := range e.Attrs {
		cp.Attrs[k] = v
	}
	return &cp
}

// Validate checks if the Node has valid field values.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if n.CaseID == "" {
		return fmt.Errorf("node case ID cannot be empty")
	}
	if err := n.Kind.Validate(); err != nil {
		return fmt.Errorf("invalid node kind: %w", err)
	}
	return nil
}

// Validate checks if the NodeKind is a valid enum value.
func (k NodeKind) Validate() error {
	switch k {
	case NodeKindReport, NodeKindExternalSource, NodeKindFactCheck, NodeKindMediaVariant:
		return nil
	default:
		return fmt.Errorf("unknown node kind: %q", k)
	}
}

// Validate checks if the Edge has valid field values.
func (e *Edge) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("edge ID cannot be empty")
	}
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("edge endpoints cannot be empty")
	}
	if e.CaseID == "" {
		return fmt.Errorf("edge case ID cannot be empty")
	}
	if err := e.Kind.Validate(); err != nil {
		return fmt.Errorf("invalid edge kind: %w", err)
	}
	return nil
}

// Validate checks if the EdgeKind is a valid enum value.
func (k EdgeKind) Validate() error {
	switch k {
	case EdgeKindSimilarTo, EdgeKindRepostOf, EdgeKindMutationOf, EdgeKindDebunkedBy, EdgeKindAmplifiedBy:
		return nil
	default:
		return fmt.Errorf("unknown edge kind: %q", k)
	}
}
