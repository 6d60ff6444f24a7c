package agents

import (
	"context"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/pkg/graph"
)

const maxXrefClaims = 2

// crossrefAgent searches external platforms for evidence matching a
// report's extracted claims and records the hits on the node.
type crossrefAgent struct {
	store    *graph.Store
	bus      *broadcast.Broadcaster
	searcher EvidenceSearcher
}

func (a *crossrefAgent) handle(ctx context.Context, ev graph.Event) error {
	if ev.Node == nil {
		return nil
	}
	node, err := a.store.GetNode(ev.Node.ID)
	if err != nil {
		return err
	}
	statements := claimStatements(node)
	if len(statements) == 0 {
		return nil
	}
	if _, done := node.Attrs["video_xref"]; done {
		return nil
	}

	var hits []any
	for i, statement := range statements {
		if i == maxXrefClaims {
			break
		}
		found, err := a.searcher.SearchEvidence(ctx, statement)
		if err != nil {
			continue
		}
		for _, hit := range found {
			hits = append(hits, map[string]any{
				"claim":    statement,
				"url":      hit.URL,
				"platform": hit.Platform,
			})
		}
	}

	updated, err := a.store.UpdateNode(node.ID, map[string]any{
		"video_xref": hits,
	})
	if err != nil {
		return err
	}
	a.bus.Publish(graph.NodeEvent(graph.ActionUpdateNode, updated))
	return nil
}

// claimStatements pulls the extracted claim statements off a report node.
func claimStatements(n *graph.Node) []string {
	raw, ok := n.Attrs["claims"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, c := range raw {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m["statement"].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
