package watch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/pkg/graph"
)

type dropNotifier struct{}

func (dropNotifier) Notify(graph.Event) {}

// setupWatch starts miniredis and wires a broadcaster with a Redis sink
// publishing to it, so tests exercise the same path a running engine uses.
func setupWatch(t *testing.T) (*redis.Client, *broadcast.Broadcaster) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	bus := broadcast.New(dropNotifier{})
	sink, err := broadcast.NewRedisSink(&redis.Options{Addr: mr.Addr()}, "board-1")
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	bus.Subscribe(sink)
	return rdb, bus
}

// waitSubscribed blocks until the subscription is registered server-side,
// so a following publish cannot race it.
func waitSubscribed(t *testing.T, rdb *redis.Client, instance string) {
	t.Helper()
	channel := broadcast.GraphUpdatesChannel(instance)
	require.Eventually(t, func() bool {
		counts, err := rdb.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && counts[channel] > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func waitEvent(t *testing.T, sub *Subscription) broadcast.Message {
	t.Helper()
	select {
	case msg := <-sub.Events():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for graph update")
		return broadcast.Message{}
	}
}

func TestSubscribe(t *testing.T) {
	t.Run("streams published updates", func(t *testing.T) {
		rdb, bus := setupWatch(t)
		sub, err := Subscribe(context.Background(), rdb, "board-1", Criteria{})
		require.NoError(t, err)
		defer sub.Close()
		waitSubscribed(t, rdb, "board-1")

		bus.Publish(graph.NodeEvent(graph.ActionAddNode,
			graph.NewNode("r1", graph.NodeKindReport, "CASE-A", map[string]any{"text_body": "fire alarm"})))

		msg := waitEvent(t, sub)
		assert.Equal(t, "graph_update", msg.Type)
		assert.Equal(t, "node:report", msg.EventType)
		assert.Equal(t, graph.ActionAddNode, msg.Action)
		assert.Equal(t, "CASE-A", messageCaseID(msg))
	})

	t.Run("filters by event type glob and case", func(t *testing.T) {
		rdb, bus := setupWatch(t)
		sub, err := Subscribe(context.Background(), rdb, "board-1", Criteria{
			TypeGlob: "edge:*",
			CaseID:   "CASE-B",
		})
		require.NoError(t, err)
		defer sub.Close()
		waitSubscribed(t, rdb, "board-1")

		bus.Publish(graph.NodeEvent(graph.ActionAddNode,
			graph.NewNode("r1", graph.NodeKindReport, "CASE-B", nil)))
		bus.Publish(graph.EdgeEvent(
			graph.NewEdge("e1", graph.EdgeKindSimilarTo, "r1", "r2", "CASE-A", nil)))
		bus.Publish(graph.EdgeEvent(
			graph.NewEdge("e2", graph.EdgeKindSimilarTo, "r3", "r4", "CASE-B", nil)))

		msg := waitEvent(t, sub)
		assert.Equal(t, "edge:similar_to", msg.EventType)
		assert.Equal(t, "CASE-B", messageCaseID(msg))

		select {
		case extra := <-sub.Events():
			t.Fatalf("unexpected extra message: %+v", extra)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("malformed payload goes to the error channel", func(t *testing.T) {
		rdb, _ := setupWatch(t)
		sub, err := Subscribe(context.Background(), rdb, "board-1", Criteria{})
		require.NoError(t, err)
		defer sub.Close()
		waitSubscribed(t, rdb, "board-1")

		require.NoError(t, rdb.Publish(context.Background(),
			broadcast.GraphUpdatesChannel("board-1"), "{not json").Err())

		select {
		case err := <-sub.Errors():
			assert.ErrorContains(t, err, "failed to decode")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for decode error")
		}
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		rdb, _ := setupWatch(t)
		_, err := Subscribe(context.Background(), rdb, "", Criteria{})
		assert.Error(t, err)
	})
}

func TestCriteria(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	msg := broadcast.Message{
		Type:      "graph_update",
		EventType: "node:report",
		Payload:   map[string]any{"case_id": "CASE-A"},
		Timestamp: now,
	}

	tests := []struct {
		name string
		crit Criteria
		want bool
	}{
		{"empty criteria matches", Criteria{}, true},
		{"event type glob match", Criteria{TypeGlob: "node:*"}, true},
		{"event type glob mismatch", Criteria{TypeGlob: "edge:*"}, false},
		{"case match", Criteria{CaseID: "CASE-A"}, true},
		{"case mismatch", Criteria{CaseID: "CASE-B"}, false},
		{"since before message", Criteria{SinceTimestampMs: now.Add(-time.Hour).UnixMilli()}, true},
		{"since after message", Criteria{SinceTimestampMs: now.Add(time.Hour).UnixMilli()}, false},
		{"until after message", Criteria{UntilTimestampMs: now.Add(time.Hour).UnixMilli()}, true},
		{"until before message", Criteria{UntilTimestampMs: now.Add(-time.Hour).UnixMilli()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.crit.Matches(msg))
		})
	}

	t.Run("HasFilters", func(t *testing.T) {
		assert.False(t, (&Criteria{}).HasFilters())
		assert.True(t, (&Criteria{CaseID: "CASE-A"}).HasFilters())
	})
}
