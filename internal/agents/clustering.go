package agents

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/ingest"
	"github.com/casewire/casewire/pkg/graph"
)

const (
	earthRadiusM = 6371000.0

	clusterThreshold = 0.4
	temporalWeight   = 0.3
	geoWeight        = 0.3
	semanticWeight   = 0.4
)

// similarity holds the three clustering signals plus their weighted sum.
type similarity struct {
	Temporal float64
	Geo      float64
	Semantic float64
	Combined float64
}

// clusteringAgent links a report to its closest match in another case when
// the combined temporal, geo and semantic score crosses the threshold.
type clusteringAgent struct {
	store *graph.Store
	bus   *broadcast.Broadcaster
}

func (a *clusteringAgent) handle(ctx context.Context, ev graph.Event) error {
	node := ev.Node
	if node == nil && ev.Edge != nil {
		n, err := a.store.GetNode(ev.Edge.SourceID)
		if err != nil {
			return err
		}
		node = n
	}
	if node == nil || node.Kind != graph.NodeKindReport {
		return nil
	}

	var best *graph.Node
	var bestScore similarity
	for _, caseID := range a.store.CaseIDs() {
		if caseID == node.CaseID {
			continue
		}
		for _, cand := range a.store.NodesByKind(caseID, graph.NodeKindReport) {
			score := scoreReports(node, cand)
			if score.Combined > bestScore.Combined {
				best = cand
				bestScore = score
			}
		}
	}
	if best == nil || bestScore.Combined < clusterThreshold {
		return nil
	}
	if a.alreadyLinked(node.ID, best.ID) {
		return nil
	}

	edge := graph.NewEdge(ingest.NewEdgeID(), graph.EdgeKindSimilarTo, node.ID, best.ID, node.CaseID, map[string]any{
		"temporal_score": bestScore.Temporal,
		"geo_score":      bestScore.Geo,
		"semantic_score": bestScore.Semantic,
		"combined_score": bestScore.Combined,
	})
	if err := a.store.AddEdge(edge); err != nil {
		return err
	}
	a.bus.Publish(graph.EdgeEvent(edge))
	return nil
}

func (a *clusteringAgent) alreadyLinked(sourceID, targetID string) bool {
	for _, e := range a.store.OutgoingEdges(sourceID) {
		if e.Kind == graph.EdgeKindSimilarTo && e.TargetID == targetID {
			return true
		}
	}
	return false
}

// scoreReports computes the weighted similarity between two report nodes.
func scoreReports(a, b *graph.Node) similarity {
	s := similarity{
		Temporal: temporalScore(nodeTimestamp(a), nodeTimestamp(b)),
		Geo:      geoScore(nodeLocation(a), nodeLocation(b)),
		Semantic: semanticScore(nodeText(a), nodeText(b)),
	}
	s.Combined = temporalWeight*s.Temporal + geoWeight*s.Geo + semanticWeight*s.Semantic
	return s
}

// temporalScore is 1.0 within a 30 minute window, then decays linearly to
// zero over one hour.
func temporalScore(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	delta := math.Abs(a.Sub(b).Seconds())
	if delta <= 30*60 {
		return 1.0
	}
	return math.Max(0, 1-delta/3600)
}

// geoScore is 1.0 within 200 m, then decays linearly to zero over one
// kilometer. Either location missing scores zero.
func geoScore(a, b *ingest.Location) float64 {
	if a == nil || b == nil {
		return 0
	}
	d := haversineM(a.Lat, a.Lng, b.Lat, b.Lng)
	if d <= 200 {
		return 1.0
	}
	return math.Max(0, 1-d/1000)
}

// semanticScore is the Jaccard overlap of significant tokens, doubled and
// clamped so that half-overlapping texts already score 1.0.
func semanticScore(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return math.Min(1, 2*float64(inter)/float64(union))
}

// tokens lowercases the text and keeps words longer than 3 characters.
func tokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 3 {
			out[w] = struct{}{}
		}
	}
	return out
}

// haversineM is the great-circle distance in meters between two points.
func haversineM(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

func nodeTimestamp(n *graph.Node) time.Time {
	raw, _ := n.Attrs["timestamp"].(string)
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nodeLocation(n *graph.Node) *ingest.Location {
	loc, ok := n.Attrs["location"].(map[string]any)
	if !ok {
		return nil
	}
	lat, latOK := loc["lat"].(float64)
	lng, lngOK := loc["lng"].(float64)
	if !latOK || !lngOK {
		return nil
	}
	building, _ := loc["building"].(string)
	return &ingest.Location{Lat: lat, Lng: lng, Building: building}
}

func nodeText(n *graph.Node) string {
	text, _ := n.Attrs["text_body"].(string)
	return text
}
