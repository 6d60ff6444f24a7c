// Package agents implements the analysis agents (knowledge sources) that
// react to graph events: report clustering, media forensics, claim
// extraction and fact-checking, cross-referencing, role classification,
// debunk reclustering and case synthesis.
//
// External AI providers are abstracted behind small interfaces; only their
// result contract matters here. Every interface ships with an in-process
// heuristic default so the pipeline runs standalone, and agents fall back
// to neutral results when a provider fails - a provider outage never stops
// the board.
package agents

import (
	"context"
	"strings"

	"github.com/casewire/casewire/pkg/graph"
)

// Claim is a single checkable statement extracted from report text.
type Claim struct {
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence"`
}

// Extraction is the claim extractor's result contract.
type Extraction struct {
	Claims              []Claim  `json:"claims"`
	Urgency             float64  `json:"urgency"`
	MisinformationFlags []string `json:"misinformation_flags"`
	SearchQueries       []string `json:"search_queries"`
}

// ClaimExtractor extracts checkable claims from free report text.
type ClaimExtractor interface {
	ExtractClaims(ctx context.Context, text string) (Extraction, error)
}

// FactCheckResult is one published fact-check matched against a claim.
type FactCheckResult struct {
	ClaimText string `json:"claim_text"`
	Rating    string `json:"rating"`
	Reviewer  string `json:"reviewer"`
	URL       string `json:"url"`
}

// FactChecker looks up published fact-checks for a claim statement.
type FactChecker interface {
	SearchClaims(ctx context.Context, statement string) ([]FactCheckResult, error)
}

// Synthesis is the case synthesizer's result contract.
type Synthesis struct {
	Narrative         string  `json:"narrative"`
	OriginAnalysis    string  `json:"origin_analysis"`
	SpreadMap         string  `json:"spread_map"`
	Confidence        float64 `json:"confidence_score"`
	RecommendedAction string  `json:"recommended_action"`
}

// Synthesizer produces a structured narrative for a whole case.
type Synthesizer interface {
	SynthesizeCase(ctx context.Context, snap *graph.CaseSnapshot) (Synthesis, error)
}

// EvidenceHit is one external evidence match for a claim query.
type EvidenceHit struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

// EvidenceSearcher finds external media evidence related to a claim.
type EvidenceSearcher interface {
	SearchEvidence(ctx context.Context, query string) ([]EvidenceHit, error)
}

// VideoAnalyzer summarizes video evidence that cannot be hashed frame-free.
type VideoAnalyzer interface {
	AnalyzeVideo(ctx context.Context, url string) (string, error)
}

// urgencyKeywords push the heuristic urgency score up when present.
var urgencyKeywords = []string{
	"fire", "weapon", "gun", "explosion", "bomb", "injured", "bleeding",
	"attack", "emergency", "evacuate", "smoke", "alarm",
}

// HeuristicExtractor is the default ClaimExtractor: sentence-level claims
// with keyword-driven urgency. Good enough to exercise the pipeline; a real
// deployment swaps in an LLM-backed extractor.
type HeuristicExtractor struct{}

// ExtractClaims splits the text into sentences and scores urgency by
// keyword presence.
func (HeuristicExtractor) ExtractClaims(ctx context.Context, text string) (Extraction, error) {
	ex := Extraction{Urgency: 0.3}

	lower := strings.ToLower(text)
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			ex.Urgency += 0.2
		}
	}
	if ex.Urgency > 1.0 {
		ex.Urgency = 1.0
	}

	for _, sentence := range splitSentences(text) {
		if len(strings.Fields(sentence)) < 3 {
			continue
		}
		ex.Claims = append(ex.Claims, Claim{Statement: sentence, Confidence: 0.5})
		if len(ex.Claims) == 3 {
			break
		}
	}
	for _, c := range ex.Claims {
		ex.SearchQueries = append(ex.SearchQueries, c.Statement)
	}
	return ex, nil
}

func splitSentences(text string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NoopVideoAnalyzer is the default VideoAnalyzer: a fixed placeholder note.
type NoopVideoAnalyzer struct{}

func (NoopVideoAnalyzer) AnalyzeVideo(ctx context.Context, url string) (string, error) {
	return "Video evidence attached; manual review required.", nil
}

// NoopFactChecker is the default FactChecker: it finds nothing, so no
// fact-check nodes or debunked_by edges are created without a real backend.
type NoopFactChecker struct{}

func (NoopFactChecker) SearchClaims(ctx context.Context, statement string) ([]FactCheckResult, error) {
	return nil, nil
}

// NoopEvidenceSearcher is the default EvidenceSearcher: no external hits.
type NoopEvidenceSearcher struct{}

func (NoopEvidenceSearcher) SearchEvidence(ctx context.Context, query string) ([]EvidenceHit, error) {
	return nil, nil
}

// TemplateSynthesizer is the default Synthesizer: a deterministic narrative
// assembled from the case snapshot.
type TemplateSynthesizer struct{}

func (TemplateSynthesizer) SynthesizeCase(ctx context.Context, snap *graph.CaseSnapshot) (Synthesis, error) {
	reports := 0
	for _, n := range snap.Nodes {
		if n.Kind == graph.NodeKindReport {
			reports++
		}
	}
	narrative := snap.Summary
	if narrative == "" {
		narrative = "No report text available for this case yet."
	}
	return Synthesis{
		Narrative:         narrative,
		OriginAnalysis:    "Earliest report on record is treated as the origin pending classification.",
		SpreadMap:         strings.TrimSpace(snap.Story),
		Confidence:        0.3 + 0.1*float64(min(reports, 5)),
		RecommendedAction: "Await verification before publishing an alert.",
	}, nil
}
