package agents

import (
	"context"
	"fmt"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/pkg/graph"
)

// synthesizerAgent runs the case synthesizer over the full case snapshot
// and merges the resulting narrative onto every report node in the case.
type synthesizerAgent struct {
	store    *graph.Store
	bus      *broadcast.Broadcaster
	provider Synthesizer
}

func (a *synthesizerAgent) handle(ctx context.Context, ev graph.Event) error {
	snap, err := a.store.CaseSnapshot(ev.CaseID)
	if err != nil {
		return fmt.Errorf("snapshotting case %s: %w", ev.CaseID, err)
	}
	synth, err := a.provider.SynthesizeCase(ctx, snap)
	if err != nil {
		return fmt.Errorf("synthesizing case %s: %w", ev.CaseID, err)
	}
	if synth.Narrative == "" {
		return nil
	}

	for _, node := range a.store.NodesByKind(ev.CaseID, graph.NodeKindReport) {
		if have, _ := node.Attrs["case_narrative"].(string); have == synth.Narrative {
			continue
		}
		updated, err := a.store.UpdateNode(node.ID, map[string]any{
			"case_narrative":     synth.Narrative,
			"origin_analysis":    synth.OriginAnalysis,
			"spread_map":         synth.SpreadMap,
			"confidence_score":   synth.Confidence,
			"recommended_action": synth.RecommendedAction,
		})
		if err != nil {
			return err
		}
		a.bus.Publish(graph.NodeEvent(graph.ActionUpdateNode, updated))
	}
	return nil
}
