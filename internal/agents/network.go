package agents

import (
	"context"
	"fmt"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/ingest"
	"github.com/casewire/casewire/pkg/graph"
)

const maxCheckedClaims = 3

// networkAgent extracts checkable claims from a report, looks each one up
// against published fact-checks, and expands the case graph with fact-check
// and external-source nodes.
type networkAgent struct {
	store     *graph.Store
	bus       *broadcast.Broadcaster
	extractor ClaimExtractor
	checker   FactChecker
}

func (a *networkAgent) handle(ctx context.Context, ev graph.Event) error {
	if ev.Node == nil || ev.Node.Kind != graph.NodeKindReport {
		return nil
	}
	node, err := a.store.GetNode(ev.Node.ID)
	if err != nil {
		return err
	}
	text := nodeText(node)
	if text == "" {
		return nil
	}

	ex, err := a.extractor.ExtractClaims(ctx, text)
	if err != nil {
		// Neutral fallback: the board keeps moving without the provider.
		ex = Extraction{Urgency: 0.3}
	}

	claims := make([]any, 0, len(ex.Claims))
	for _, c := range ex.Claims {
		claims = append(claims, map[string]any{
			"statement":  c.Statement,
			"confidence": c.Confidence,
		})
	}
	updated, err := a.store.UpdateNode(node.ID, map[string]any{
		"claims":               claims,
		"urgency":              ex.Urgency,
		"misinformation_flags": toAnySlice(ex.MisinformationFlags),
		"status":               "analyzed",
	})
	if err != nil {
		return err
	}
	a.bus.Publish(graph.NodeEvent(graph.ActionUpdateNode, updated))

	for i, claim := range ex.Claims {
		if i == maxCheckedClaims {
			break
		}
		if err := a.factCheck(ctx, node, claim); err != nil {
			return err
		}
	}
	for i, query := range ex.SearchQueries {
		if i == maxCheckedClaims {
			break
		}
		if err := a.externalSource(node, query); err != nil {
			return err
		}
	}
	return nil
}

// factCheck creates a fact-check node plus a debunked_by edge for every
// published check matching the claim.
func (a *networkAgent) factCheck(ctx context.Context, report *graph.Node, claim Claim) error {
	results, err := a.checker.SearchClaims(ctx, claim.Statement)
	if err != nil || len(results) == 0 {
		return nil
	}
	for _, res := range results {
		fc := graph.NewNode(ingest.NewNodeID("FC"), graph.NodeKindFactCheck, report.CaseID, map[string]any{
			"claim_text": res.ClaimText,
			"rating":     res.Rating,
			"reviewer":   res.Reviewer,
			"url":        res.URL,
		})
		if err := a.store.AddNode(fc); err != nil {
			return fmt.Errorf("adding fact-check node: %w", err)
		}
		a.bus.Publish(graph.NodeEvent(graph.ActionAddNode, fc))

		edge := graph.NewEdge(ingest.NewEdgeID(), graph.EdgeKindDebunkedBy, report.ID, fc.ID, report.CaseID, map[string]any{
			"claim": claim.Statement,
		})
		if err := a.store.AddEdge(edge); err != nil {
			return fmt.Errorf("adding debunk edge: %w", err)
		}
		a.bus.Publish(graph.EdgeEvent(edge))
	}
	return nil
}

// externalSource records the search query as an external-source node linked
// to the report, so later cross-referencing has somewhere to hang evidence.
func (a *networkAgent) externalSource(report *graph.Node, query string) error {
	src := graph.NewNode(ingest.NewNodeID("SRC"), graph.NodeKindExternalSource, report.CaseID, map[string]any{
		"query":  query,
		"status": "pending",
	})
	if err := a.store.AddNode(src); err != nil {
		return fmt.Errorf("adding external source node: %w", err)
	}
	a.bus.Publish(graph.NodeEvent(graph.ActionAddNode, src))

	edge := graph.NewEdge(ingest.NewEdgeID(), graph.EdgeKindSimilarTo, report.ID, src.ID, report.CaseID, map[string]any{
		"origin": "search_query",
	})
	if err := a.store.AddEdge(edge); err != nil {
		return fmt.Errorf("adding external source edge: %w", err)
	}
	a.bus.Publish(graph.EdgeEvent(edge))
	return nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
