package agents

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewire/casewire/pkg/graph"
)

type stubExtractor struct {
	result Extraction
	err    error
}

func (s *stubExtractor) ExtractClaims(ctx context.Context, text string) (Extraction, error) {
	return s.result, s.err
}

type stubChecker struct {
	results map[string][]FactCheckResult
}

func (s *stubChecker) SearchClaims(ctx context.Context, statement string) ([]FactCheckResult, error) {
	return s.results[statement], nil
}

type stubSearcher struct {
	hits map[string][]EvidenceHit
}

func (s *stubSearcher) SearchEvidence(ctx context.Context, query string) ([]EvidenceHit, error) {
	return s.hits[query], nil
}

func TestNetworkAgent(t *testing.T) {
	t.Run("merges claims and expands the graph", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)

		n := graph.NewNode("r1", graph.NodeKindReport, "CASE-A", map[string]any{
			"text_body": "gas leak reported at the depot",
			"status":    "processing",
		})
		require.NoError(t, store.AddNode(n))

		agent := &networkAgent{
			store: store,
			bus:   bus,
			extractor: &stubExtractor{result: Extraction{
				Claims: []Claim{
					{Statement: "gas leak at the depot", Confidence: 0.8},
					{Statement: "depot evacuated", Confidence: 0.6},
				},
				Urgency:       0.9,
				SearchQueries: []string{"gas leak depot"},
			}},
			checker: &stubChecker{results: map[string][]FactCheckResult{
				"gas leak at the depot": {{
					ClaimText: "No gas leak occurred at the depot",
					Rating:    "False",
					Reviewer:  "Metro Fact Desk",
					URL:       "https://factdesk.test/depot",
				}},
			}},
		}
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionAddNode, n)))

		updated, err := store.GetNode("r1")
		require.NoError(t, err)
		assert.Equal(t, "analyzed", updated.Attrs["status"])
		assert.Equal(t, 0.9, updated.Attrs["urgency"])
		claims, ok := updated.Attrs["claims"].([]any)
		require.True(t, ok)
		assert.Len(t, claims, 2)

		facts := store.NodesByKind("CASE-A", graph.NodeKindFactCheck)
		require.Len(t, facts, 1)
		assert.Equal(t, "False", facts[0].Attrs["rating"])

		sources := store.NodesByKind("CASE-A", graph.NodeKindExternalSource)
		require.Len(t, sources, 1)
		assert.Equal(t, "gas leak depot", sources[0].Attrs["query"])

		kinds := make(map[graph.EdgeKind]int)
		for _, e := range store.OutgoingEdges("r1") {
			kinds[e.Kind]++
		}
		assert.Equal(t, 1, kinds[graph.EdgeKindDebunkedBy])
		assert.Equal(t, 1, kinds[graph.EdgeKindSimilarTo])

		assert.Len(t, sink.byType("update:report"), 1)
		assert.Len(t, sink.byType("node:fact_check"), 1)
		assert.Len(t, sink.byType("edge:debunked_by"), 1)
		assert.Len(t, sink.byType("node:external_source"), 1)
	})

	t.Run("extractor failure falls back to a neutral result", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)

		n := graph.NewNode("r1", graph.NodeKindReport, "CASE-A", map[string]any{
			"text_body": "something happened",
		})
		require.NoError(t, store.AddNode(n))

		agent := &networkAgent{
			store:     store,
			bus:       bus,
			extractor: &stubExtractor{err: fmt.Errorf("provider down")},
			checker:   &stubChecker{},
		}
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionAddNode, n)))

		updated, err := store.GetNode("r1")
		require.NoError(t, err)
		assert.Equal(t, 0.3, updated.Attrs["urgency"])
		assert.Len(t, sink.byType("update:report"), 1)
		assert.Empty(t, store.NodesByKind("CASE-A", graph.NodeKindFactCheck))
	})

	t.Run("checks at most three claims", func(t *testing.T) {
		store, bus, _ := setupAgentTest(t)

		n := graph.NewNode("r1", graph.NodeKindReport, "CASE-A", map[string]any{
			"text_body": "busy report",
		})
		require.NoError(t, store.AddNode(n))

		var claims []Claim
		results := make(map[string][]FactCheckResult)
		for i := 0; i < 5; i++ {
			statement := fmt.Sprintf("claim number %d", i)
			claims = append(claims, Claim{Statement: statement, Confidence: 0.5})
			results[statement] = []FactCheckResult{{ClaimText: statement, Rating: "False"}}
		}

		agent := &networkAgent{
			store:     store,
			bus:       bus,
			extractor: &stubExtractor{result: Extraction{Claims: claims}},
			checker:   &stubChecker{results: results},
		}
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionAddNode, n)))
		assert.Len(t, store.NodesByKind("CASE-A", graph.NodeKindFactCheck), 3)
	})

	t.Run("ignores non-report nodes", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)
		n := graph.NewNode("fc1", graph.NodeKindFactCheck, "CASE-A", map[string]any{"rating": "False"})
		require.NoError(t, store.AddNode(n))

		agent := &networkAgent{store: store, bus: bus, extractor: HeuristicExtractor{}, checker: NoopFactChecker{}}
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionAddNode, n)))
		assert.Empty(t, sink.messages)
	})
}

func TestCrossrefAgent(t *testing.T) {
	t.Run("records evidence hits on the report", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)

		n := graph.NewNode("r1", graph.NodeKindReport, "CASE-A", map[string]any{
			"text_body": "gas leak reported",
			"claims": []any{
				map[string]any{"statement": "gas leak at the depot"},
				map[string]any{"statement": "depot evacuated"},
				map[string]any{"statement": "third claim ignored"},
			},
		})
		require.NoError(t, store.AddNode(n))

		agent := &crossrefAgent{
			store: store,
			bus:   bus,
			searcher: &stubSearcher{hits: map[string][]EvidenceHit{
				"gas leak at the depot": {{URL: "https://clips.test/1", Platform: "clips"}},
				"third claim ignored":   {{URL: "https://clips.test/2", Platform: "clips"}},
			}},
		}
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionUpdateNode, n)))

		updated, err := store.GetNode("r1")
		require.NoError(t, err)
		hits, ok := updated.Attrs["video_xref"].([]any)
		require.True(t, ok)
		// Only the first two claims are searched.
		require.Len(t, hits, 1)
		hit := hits[0].(map[string]any)
		assert.Equal(t, "https://clips.test/1", hit["url"])
		assert.Len(t, sink.byType("update:report"), 1)
	})

	t.Run("runs once per report", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)

		n := graph.NewNode("r1", graph.NodeKindReport, "CASE-A", map[string]any{
			"claims": []any{map[string]any{"statement": "claim"}},
		})
		require.NoError(t, store.AddNode(n))

		agent := &crossrefAgent{store: store, bus: bus, searcher: NoopEvidenceSearcher{}}
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionUpdateNode, n)))

		updated, err := store.GetNode("r1")
		require.NoError(t, err)
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionUpdateNode, updated)))
		assert.Len(t, sink.byType("update:report"), 1)
	})

	t.Run("skips reports without claims", func(t *testing.T) {
		store, bus, sink := setupAgentTest(t)
		n := graph.NewNode("r1", graph.NodeKindReport, "CASE-A", map[string]any{"text_body": "plain"})
		require.NoError(t, store.AddNode(n))

		agent := &crossrefAgent{store: store, bus: bus, searcher: NoopEvidenceSearcher{}}
		require.NoError(t, agent.handle(context.Background(), graph.NodeEvent(graph.ActionUpdateNode, n)))
		assert.Empty(t, sink.messages)
	})
}
