// Package ingest is the inbound mutation API: it turns submitted tip
// reports and manual links into graph mutations, and keeps the cross-case
// report registry that clustering compares against.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/pkg/graph"
)

// Location is an optional report geolocation.
type Location struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Building string  `json:"building,omitempty"`
}

// Submission is a public tip submission.
type Submission struct {
	Text      string
	Location  *Location
	Timestamp time.Time
	MediaURL  string
	Anonymous bool
	Contact   string
}

// Report is a registered tip report: the registry entry backing a report
// node. Clustering reads these across all cases.
type Report struct {
	CaseID    string
	ReportID  string
	NodeID    string
	Text      string
	Location  *Location
	Timestamp time.Time
	MediaURL  string
	Anonymous bool
	Contact   string
	Status    string
	CreatedAt time.Time
}

// Registry holds every submitted report across all cases, in submission
// order. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*Report
	order []string
}

// NewRegistry creates an empty report registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Report)}
}

// Add registers a report. Re-adding an existing report ID overwrites it.
func (r *Registry) Add(report *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[report.ReportID]; !ok {
		r.order = append(r.order, report.ReportID)
	}
	r.byID[report.ReportID] = report
}

// Get returns the report for an ID, or nil.
func (r *Registry) Get(reportID string) *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[reportID]
}

// ByNodeID returns the report backing a graph node, or nil.
func (r *Registry) ByNodeID(nodeID string) *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rep := range r.byID {
		if rep.NodeID == nodeID {
			return rep
		}
	}
	return nil
}

// All returns every report in submission order.
func (r *Registry) All() []*Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reports := make([]*Report, 0, len(r.order))
	for _, id := range r.order {
		reports = append(reports, r.byID[id])
	}
	return reports
}

// Service turns submissions into graph mutations and publishes them.
type Service struct {
	store   *graph.Store
	bus     *broadcast.Broadcaster
	reports *Registry
}

// NewService creates the ingestion service.
func NewService(store *graph.Store, bus *broadcast.Broadcaster, reports *Registry) *Service {
	return &Service{store: store, bus: bus, reports: reports}
}

// SubmitReport assigns a new case ID, creates the report node, registers the
// report and publishes the mutation, which emits a node:report event to the
// scheduler.
func (s *Service) SubmitReport(ctx context.Context, sub Submission) (*Report, error) {
	if sub.Text == "" {
		return nil, fmt.Errorf("report text cannot be empty")
	}
	ts := sub.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	caseID := NewCaseID()
	reportID := NewReportID()

	attrs := map[string]any{
		"text_body":  sub.Text,
		"timestamp":  ts.UTC().Format(time.RFC3339),
		"media_url":  sub.MediaURL,
		"anonymous":  sub.Anonymous,
		"contact":    sub.Contact,
		"status":     "processing",
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	if sub.Location != nil {
		attrs["location"] = map[string]any{
			"lat":      sub.Location.Lat,
			"lng":      sub.Location.Lng,
			"building": sub.Location.Building,
		}
	}

	node := graph.NewNode(reportID, graph.NodeKindReport, caseID, attrs)
	if err := s.store.AddNode(node); err != nil {
		return nil, fmt.Errorf("failed to add report node: %w", err)
	}

	report := &Report{
		CaseID:    caseID,
		ReportID:  reportID,
		NodeID:    node.ID,
		Text:      sub.Text,
		Location:  sub.Location,
		Timestamp: ts.UTC(),
		MediaURL:  sub.MediaURL,
		Anonymous: sub.Anonymous,
		Contact:   sub.Contact,
		Status:    "processing",
		CreatedAt: time.Now().UTC(),
	}
	s.reports.Add(report)

	s.bus.Publish(graph.NodeEvent(graph.ActionAddNode, node))
	return report, nil
}

// CreateEdge creates a manual link between two existing nodes and publishes
// the mutation, which emits an edge:<kind> event to the scheduler.
func (s *Service) CreateEdge(ctx context.Context, kind graph.EdgeKind, sourceID, targetID, caseID string, attrs map[string]any) (*graph.Edge, error) {
	if _, err := s.store.GetNode(sourceID); err != nil {
		return nil, fmt.Errorf("edge source: %w", err)
	}
	if _, err := s.store.GetNode(targetID); err != nil {
		return nil, fmt.Errorf("edge target: %w", err)
	}

	edge := graph.NewEdge(NewEdgeID(), kind, sourceID, targetID, caseID, attrs)
	if err := s.store.AddEdge(edge); err != nil {
		return nil, fmt.Errorf("failed to add edge: %w", err)
	}

	s.bus.Publish(graph.EdgeEvent(edge))
	return edge, nil
}

// Reports lists every submitted report in submission order.
func (s *Service) Reports() []*Report {
	return s.reports.All()
}
