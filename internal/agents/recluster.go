package agents

import (
	"context"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/pkg/graph"
)

// reclusterAgent re-evaluates a case after a debunk lands: every report's
// debunk edge count is recomputed and merged onto the node so viewers and
// the synthesizer see the corrected picture.
type reclusterAgent struct {
	store *graph.Store
	bus   *broadcast.Broadcaster
}

func (a *reclusterAgent) handle(ctx context.Context, ev graph.Event) error {
	counts := make(map[string]int)
	for _, e := range a.store.EdgesForCase(ev.CaseID) {
		if e.Kind == graph.EdgeKindDebunkedBy {
			counts[e.SourceID]++
		}
	}
	for nodeID, count := range counts {
		node, err := a.store.GetNode(nodeID)
		if err != nil {
			continue
		}
		if have, ok := node.Attrs["debunk_count"].(int); ok && have == count {
			continue
		}
		updated, err := a.store.UpdateNode(nodeID, map[string]any{
			"debunk_count": count,
		})
		if err != nil {
			return err
		}
		a.bus.Publish(graph.NodeEvent(graph.ActionUpdateNode, updated))
	}
	return nil
}
