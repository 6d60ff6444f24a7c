package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/ingest"
	"github.com/casewire/casewire/internal/scheduler"
	"github.com/casewire/casewire/pkg/graph"
)

// TestPipelineClustersCrossCaseReports drives two matching tips through the
// full wiring: ingest service, broadcaster, scheduler dispatch loop and the
// registered agents. Two reports with identical text, ten minutes and about
// 167 meters apart, must end up linked across their cases.
func TestPipelineClustersCrossCaseReports(t *testing.T) {
	store := graph.NewStore()
	sched := scheduler.New()
	bus := broadcast.New(sched)
	require.NoError(t, RegisterAll(sched, Deps{Store: store, Bus: bus}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = sched.Run(ctx) }()
	go func() { _ = bus.Run(ctx) }()

	svc := ingest.NewService(store, bus, ingest.NewRegistry())
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r1, err := svc.SubmitReport(ctx, ingest.Submission{
		Text:      "fire alarm building A",
		Location:  &ingest.Location{Lat: 0, Lng: 0},
		Timestamp: t0,
	})
	require.NoError(t, err)

	// Let the first report's analysis settle before the second arrives, so
	// the clustering pass that links the pair is the second report's.
	require.Eventually(t, func() bool {
		n, err := store.GetNode(r1.NodeID)
		return err == nil && n.Attrs["status"] == "analyzed"
	}, 5*time.Second, 25*time.Millisecond)

	// 0.0015 degrees of latitude is roughly 167 meters.
	r2, err := svc.SubmitReport(ctx, ingest.Submission{
		Text:      "fire alarm building A",
		Location:  &ingest.Location{Lat: 0.0015, Lng: 0},
		Timestamp: t0.Add(10 * time.Minute),
	})
	require.NoError(t, err)
	require.NotEqual(t, r1.CaseID, r2.CaseID)

	var linked *graph.Edge
	require.Eventually(t, func() bool {
		for _, e := range store.EdgesForNode(r2.NodeID) {
			if e.Kind == graph.EdgeKindSimilarTo && e.SourceID == r2.NodeID && e.TargetID == r1.NodeID {
				linked = e
				return true
			}
		}
		return false
	}, 5*time.Second, 25*time.Millisecond)

	combined, ok := linked.Attrs["combined_score"].(float64)
	require.True(t, ok, "similar_to edge missing combined_score")
	assert.GreaterOrEqual(t, combined, 0.4)
	assert.Equal(t, r2.CaseID, linked.CaseID)
}
