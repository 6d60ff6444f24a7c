package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseSnapshot(t *testing.T) {
	t.Run("derives metadata from report nodes", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.AddNode(testReport("R1", "CASE-1", map[string]any{
			"text_body": "fire alarm in building A",
			"timestamp": "2026-08-30T09:00:00Z",
			"location":  map[string]any{"lat": 0.0, "lng": 0.0, "building": "Building A"},
		})))
		require.NoError(t, s.AddNode(testReport("R2", "CASE-1", map[string]any{
			"text_body": "smoke visible from the quad",
		})))
		require.NoError(t, s.AddEdge(NewEdge("E1", EdgeKindSimilarTo, "R2", "R1", "CASE-1", nil)))

		snap, err := s.CaseSnapshot("CASE-1")
		require.NoError(t, err)
		assert.Equal(t, "CASE-1", snap.CaseID)
		assert.Equal(t, "active", snap.Status)
		assert.Equal(t, "fire alarm in building A", snap.Summary)
		assert.Equal(t, "Building A", snap.Location)
		assert.Contains(t, snap.Story, "Report (2026-08-30T09:00:00Z): fire alarm in building A")
		assert.Contains(t, snap.Story, "smoke visible from the quad")
		assert.Equal(t, 2, snap.NodeCount)
		assert.Equal(t, 1, snap.EdgeCount)
	})

	t.Run("truncates long summaries", func(t *testing.T) {
		s := NewStore()
		long := strings.Repeat("x", 500)
		require.NoError(t, s.AddNode(testReport("R1", "CASE-1", map[string]any{"text_body": long})))

		snap, err := s.CaseSnapshot("CASE-1")
		require.NoError(t, err)
		assert.Len(t, snap.Summary, summaryLimit+3)
		assert.True(t, strings.HasSuffix(snap.Summary, "..."))
	})

	t.Run("operator metadata overrides derived values", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.AddNode(testReport("R1", "CASE-1", map[string]any{
			"text_body": "derived summary",
		})))
		s.SetCaseMetadata("CASE-1", CaseMetadata{
			Label:    "Operation Nightjar",
			Status:   "closed",
			Summary:  "operator summary",
			Location: "East Campus",
		})

		snap, err := s.CaseSnapshot("CASE-1")
		require.NoError(t, err)
		assert.Equal(t, "Operation Nightjar", snap.Label)
		assert.Equal(t, "closed", snap.Status)
		// Derived summary wins when present; operator fills gaps only.
		assert.Equal(t, "derived summary", snap.Summary)
		assert.Equal(t, "East Campus", snap.Location)
	})

	t.Run("unknown case returns ErrNotFound", func(t *testing.T) {
		s := NewStore()
		_, err := s.CaseSnapshot("CASE-GHOST")
		assert.True(t, IsNotFound(err))
	})
}

func TestCaseSnapshots(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddNode(testReport("R1", "CASE-1", nil)))
	require.NoError(t, s.AddNode(testReport("R2", "CASE-2", nil)))

	snaps := s.CaseSnapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, "CASE-1", snaps[0].CaseID)
	assert.Equal(t, "CASE-2", snaps[1].CaseID)
}
