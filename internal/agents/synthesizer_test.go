package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewire/casewire/pkg/graph"
)

type stubSynthesizer struct {
	result Synthesis
	calls  int
}

func (s *stubSynthesizer) SynthesizeCase(ctx context.Context, snap *graph.CaseSnapshot) (Synthesis, error) {
	s.calls++
	return s.result, nil
}

func TestSynthesizerAgent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("merges the synthesis onto every report", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)
		provider := &stubSynthesizer{result: Synthesis{
			Narrative:         "Two tips describe the same depot incident.",
			OriginAnalysis:    "First report is the likely origin.",
			SpreadMap:         "r1 -> r2",
			Confidence:        0.7,
			RecommendedAction: "Escalate to the duty officer.",
		}}
		agent := &synthesizerAgent{store: store, bus: bus, provider: provider}

		reportNode(t, store, "r1", "CASE-A", "depot incident", base, 0, 0)
		reportNode(t, store, "r2", "CASE-A", "depot incident again", base.Add(time.Minute), 0, 0)

		require.NoError(t, agent.handle(context.Background(), graph.Event{Type: "update:report", CaseID: "CASE-A"}))

		for _, id := range []string{"r1", "r2"} {
			n, err := store.GetNode(id)
			require.NoError(t, err)
			assert.Equal(t, "Two tips describe the same depot incident.", n.Attrs["case_narrative"])
			assert.Equal(t, 0.7, n.Attrs["confidence_score"])
			assert.Equal(t, "Escalate to the duty officer.", n.Attrs["recommended_action"])
		}
		assert.Len(t, sink.byType("update:report"), 2)
	})

	t.Run("unchanged narrative is not republished", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)
		provider := &stubSynthesizer{result: Synthesis{Narrative: "steady state"}}
		agent := &synthesizerAgent{store: store, bus: bus, provider: provider}

		reportNode(t, store, "r1", "CASE-A", "depot incident", base, 0, 0)

		ev := graph.Event{Type: "update:report", CaseID: "CASE-A"}
		require.NoError(t, agent.handle(context.Background(), ev))
		require.NoError(t, agent.handle(context.Background(), ev))

		assert.Equal(t, 2, provider.calls)
		assert.Len(t, sink.byType("update:report"), 1)
	})

	t.Run("empty narrative writes nothing", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)
		agent := &synthesizerAgent{store: store, bus: bus, provider: &stubSynthesizer{}}

		reportNode(t, store, "r1", "CASE-A", "depot incident", base, 0, 0)
		require.NoError(t, agent.handle(context.Background(), graph.Event{Type: "update:report", CaseID: "CASE-A"}))
		assert.Empty(t, sink.messages)
	})

	t.Run("missing case surfaces the snapshot error", func(t *testing.T) {
		store, bus, _ := setupAgentTest(t)
		agent := &synthesizerAgent{store: store, bus: bus, provider: &stubSynthesizer{}}
		err := agent.handle(context.Background(), graph.Event{Type: "update:report", CaseID: "CASE-NONE"})
		assert.Error(t, err)
	})
}

func TestTemplateSynthesizer(t *testing.T) {
	store := graph.NewStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reportNode(t, store, "r1", "CASE-A", "smoke near the depot gates", base, 0, 0)

	snap, err := store.CaseSnapshot("CASE-A")
	require.NoError(t, err)

	synth, err := TemplateSynthesizer{}.SynthesizeCase(context.Background(), snap)
	require.NoError(t, err)
	assert.NotEmpty(t, synth.Narrative)
	assert.NotEmpty(t, synth.RecommendedAction)
	assert.InDelta(t, 0.4, synth.Confidence, 0.001)
}
