package graph

import (
	"fmt"
	"time"
)

const summaryLimit = 200

// CaseMetadata is operator-supplied display metadata for a case. It is
// layered over the values derived from report nodes: a derived value is
// only replaced when the derived side is empty or unknown, except for
// label, status and updated_at which the operator always wins.
type CaseMetadata struct {
	Label     string `json:"label,omitempty"`
	Status    string `json:"status,omitempty"`
	Location  string `json:"location,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Story     string `json:"story,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CaseSnapshot is the derived view of one case: cases are never stored,
// only computed by grouping nodes and edges sharing a case ID.
type CaseSnapshot struct {
	CaseID    string  `json:"case_id"`
	Label     string  `json:"label"`
	Status    string  `json:"status"`
	UpdatedAt string  `json:"updated_at"`
	Summary   string  `json:"summary"`
	Location  string  `json:"location"`
	Story     string  `json:"story"`
	NodeCount int     `json:"node_count"`
	EdgeCount int     `json:"edge_count"`
	Nodes     []*Node `json:"nodes"`
	Edges     []*Edge `json:"edges"`
}

// SetCaseMetadata stores operator overrides for a case's display metadata.
func (s *Store) SetCaseMetadata(caseID string, meta CaseMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[caseID] = meta
}

// CaseMetadataFor returns the operator overrides for a case, if any.
func (s *Store) CaseMetadataFor(caseID string) (CaseMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.meta[caseID]
	return meta, ok
}

// CaseSnapshot derives the display view of a case from its nodes and edges.
// Returns ErrNotFound if the case has neither.
func (s *Store) CaseSnapshot(caseID string) (*CaseSnapshot, error) {
	nodes := s.NodesForCase(caseID)
	edges := s.EdgesForCase(caseID)
	if len(nodes) == 0 && len(edges) == 0 {
		return nil, fmt.Errorf("case %s: %w", caseID, ErrNotFound)
	}

	snap := &CaseSnapshot{
		CaseID:    caseID,
		Label:     caseID,
		Status:    "active",
		Location:  "Unknown Location",
		NodeCount: len(nodes),
		EdgeCount: len(edges),
		Nodes:     nodes,
		Edges:     edges,
	}

	var latest time.Time
	for _, n := range nodes {
		if n.CreatedAt.After(latest) {
			latest = n.CreatedAt
		}
		if n.Kind != NodeKindReport {
			continue
		}
		text, _ := n.Attrs["text_body"].(string)
		if text != "" && snap.Summary == "" {
			snap.Summary = truncate(text, summaryLimit)
		}
		if loc := locationLabel(n.Attrs["location"]); loc != "" && snap.Location == "Unknown Location" {
			snap.Location = loc
		}
		if text != "" {
			entry := text
			if ts, _ := n.Attrs["timestamp"].(string); ts != "" {
				entry = fmt.Sprintf("Report (%s): %s", ts, text)
			}
			if snap.Story != "" {
				snap.Story += "\n\n"
			}
			snap.Story += entry
		}
	}
	if latest.IsZero() {
		latest = time.Now().UTC()
	}
	snap.UpdatedAt = latest.UTC().Format(time.RFC3339)

	if meta, ok := s.CaseMetadataFor(caseID); ok {
		applyMetadata(snap, meta)
	}
	return snap, nil
}

// CaseSnapshots derives the views for every known case.
func (s *Store) CaseSnapshots() []*CaseSnapshot {
	var snaps []*CaseSnapshot
	for _, caseID := range s.CaseIDs() {
		if snap, err := s.CaseSnapshot(caseID); err == nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps
}

func applyMetadata(snap *CaseSnapshot, meta CaseMetadata) {
	if meta.Label != "" {
		snap.Label = meta.Label
	}
	if meta.Status != "" {
		snap.Status = meta.Status
	}
	if meta.Location != "" && snap.Location == "Unknown Location" {
		snap.Location = meta.Location
	}
	if meta.Summary != "" && snap.Summary == "" {
		snap.Summary = meta.Summary
	}
	if meta.Story != "" && snap.Story == "" {
		snap.Story = meta.Story
	}
	if meta.UpdatedAt != "" {
		snap.UpdatedAt = meta.UpdatedAt
	}
}

func locationLabel(v any) string {
	switch loc := v.(type) {
	case string:
		return loc
	case map[string]any:
		if b, _ := loc["building"].(string); b != "" {
			return b
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
