package agents

import (
	"context"
	"time"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/pkg/graph"
)

// classifierAgent assigns semantic roles to the report nodes of a case:
// outgoing mutation edges mark a mutator, outgoing reposts an amplifier,
// the earliest report the originator, and reports with no external or
// similarity links an unwitting sharer.
type classifierAgent struct {
	store *graph.Store
	bus   *broadcast.Broadcaster
}

func (a *classifierAgent) handle(ctx context.Context, ev graph.Event) error {
	reports := a.store.NodesByKind(ev.CaseID, graph.NodeKindReport)
	if len(reports) == 0 {
		return nil
	}
	for _, node := range reports {
		role := a.classify(node, reports)
		if role == "" {
			continue
		}
		current, _ := node.Attrs["semantic_role"].(string)
		if current == string(role) {
			continue
		}
		updated, err := a.store.UpdateNode(node.ID, map[string]any{
			"semantic_role": string(role),
		})
		if err != nil {
			return err
		}
		a.bus.Publish(graph.NodeEvent(graph.ActionUpdateNode, updated))
	}
	return nil
}

func (a *classifierAgent) classify(node *graph.Node, reports []*graph.Node) graph.Role {
	outgoing := a.store.OutgoingEdges(node.ID)

	hasMutationOut := false
	hasRepostOut := false
	hasSimilarOut := false
	hasExternalOut := false
	for _, e := range outgoing {
		switch e.Kind {
		case graph.EdgeKindMutationOf:
			hasMutationOut = true
		case graph.EdgeKindRepostOf:
			hasRepostOut = true
		case graph.EdgeKindSimilarTo:
			hasSimilarOut = true
		}
		if target, err := a.store.GetNode(e.TargetID); err == nil {
			if target.Kind == graph.NodeKindExternalSource || target.Kind == graph.NodeKindFactCheck {
				hasExternalOut = true
			}
		}
	}

	if hasMutationOut {
		return graph.RoleMutator
	}
	if hasRepostOut {
		return graph.RoleAmplifier
	}

	ts := reportTimestamp(node)
	if !ts.IsZero() && strictlyEarliest(node, ts, reports) {
		return graph.RoleOriginator
	}
	if !hasExternalOut && !hasSimilarOut {
		return graph.RoleUnwittingSharer
	}
	if earliest := earliestReport(reports); earliest != nil && earliest.ID == node.ID {
		return graph.RoleOriginator
	}
	return ""
}

// strictlyEarliest reports whether every other report carries a timestamp
// at or after ts.
func strictlyEarliest(node *graph.Node, ts time.Time, reports []*graph.Node) bool {
	for _, r := range reports {
		if r.ID == node.ID {
			continue
		}
		other := reportTimestamp(r)
		if other.IsZero() || other.Before(ts) {
			return false
		}
	}
	return true
}

func earliestReport(reports []*graph.Node) *graph.Node {
	var best *graph.Node
	var bestTS time.Time
	for _, r := range reports {
		ts := reportTimestamp(r)
		if ts.IsZero() {
			continue
		}
		if best == nil || ts.Before(bestTS) {
			best = r
			bestTS = ts
		}
	}
	return best
}

// reportTimestamp reads the submitted timestamp, falling back to the
// ingestion time.
func reportTimestamp(n *graph.Node) time.Time {
	if ts := nodeTimestamp(n); !ts.IsZero() {
		return ts
	}
	raw, _ := n.Attrs["created_at"].(string)
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
