package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/casewire/casewire/pkg/graph"
)

// API exposes report submission and case inspection over HTTP.
type API struct {
	svc   *Service
	store *graph.Store
}

// NewAPI creates the HTTP surface for the ingestion service.
func NewAPI(svc *Service, store *graph.Store) *API {
	return &API{svc: svc, store: store}
}

// Handler returns the route table for the report API.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/reports", a.submitReport)
	mux.HandleFunc("GET /api/reports", a.listReports)
	mux.HandleFunc("POST /api/edges", a.createEdge)
	mux.HandleFunc("GET /api/cases", a.listCases)
	mux.HandleFunc("GET /api/cases/{id}", a.getCase)
	return mux
}

type submissionRequest struct {
	Text      string    `json:"text"`
	Location  *Location `json:"location,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	Anonymous bool      `json:"anonymous,omitempty"`
	Contact   string    `json:"contact,omitempty"`
}

type reportResponse struct {
	CaseID    string    `json:"case_id"`
	ReportID  string    `json:"report_id"`
	NodeID    string    `json:"node_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *API) submitReport(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parsing request: %w", err))
		return
	}

	sub := Submission{
		Text:      req.Text,
		Location:  req.Location,
		MediaURL:  req.MediaURL,
		Anonymous: req.Anonymous,
		Contact:   req.Contact,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parsing timestamp: %w", err))
			return
		}
		sub.Timestamp = ts
	}

	report, err := a.svc.SubmitReport(r.Context(), sub)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	log.Printf("[API] report %s accepted into case %s", report.ReportID, report.CaseID)

	writeJSON(w, http.StatusCreated, reportResponse{
		CaseID:    report.CaseID,
		ReportID:  report.ReportID,
		NodeID:    report.NodeID,
		Status:    report.Status,
		CreatedAt: report.CreatedAt,
	})
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	reports := a.svc.Reports()
	out := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, reportResponse{
			CaseID:    rep.CaseID,
			ReportID:  rep.ReportID,
			NodeID:    rep.NodeID,
			Status:    rep.Status,
			CreatedAt: rep.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type edgeRequest struct {
	Kind     string         `json:"edge_type"`
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id"`
	CaseID   string         `json:"case_id"`
	Attrs    map[string]any `json:"data,omitempty"`
}

func (a *API) createEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parsing request: %w", err))
		return
	}

	edge, err := a.svc.CreateEdge(r.Context(), graph.EdgeKind(req.Kind), req.SourceID, req.TargetID, req.CaseID, req.Attrs)
	switch {
	case graph.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (a *API) listCases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.CaseSnapshots())
}

func (a *API) getCase(w http.ResponseWriter, r *http.Request) {
	snap, err := a.store.CaseSnapshot(r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, graph.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
