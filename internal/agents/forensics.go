package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/ingest"
	"github.com/casewire/casewire/pkg/graph"
)

const (
	repostMaxDistance   = 5
	mutationMaxDistance = 15
)

var videoExtensions = []string{".mp4", ".mov", ".avi", ".webm", ".mkv"}

// forensicsAgent analyzes report media: perceptual hashing, EXIF metadata
// and repost detection for images, provider-backed summaries for video.
type forensicsAgent struct {
	store   *graph.Store
	bus     *broadcast.Broadcaster
	fetcher MediaFetcher
	video   VideoAnalyzer
}

func (a *forensicsAgent) handle(ctx context.Context, ev graph.Event) error {
	if ev.Node == nil {
		return nil
	}
	node, err := a.store.GetNode(ev.Node.ID)
	if err != nil {
		return err
	}
	url, _ := node.Attrs["media_url"].(string)
	if url == "" {
		return nil
	}

	if isVideoURL(url) {
		return a.analyzeVideo(ctx, node, url)
	}
	return a.analyzeImage(ctx, node, url)
}

func (a *forensicsAgent) analyzeVideo(ctx context.Context, node *graph.Node, url string) error {
	summary, err := a.video.AnalyzeVideo(ctx, url)
	if err != nil {
		return fmt.Errorf("analyzing video: %w", err)
	}
	updated, err := a.store.UpdateNode(node.ID, map[string]any{
		"media_type":    "video",
		"video_summary": summary,
	})
	if err != nil {
		return err
	}
	a.bus.Publish(graph.NodeEvent(graph.ActionUpdateNode, updated))
	return nil
}

func (a *forensicsAgent) analyzeImage(ctx context.Context, node *graph.Node, url string) error {
	data, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetching media for %s: %w", node.ID, err)
	}
	hash, err := perceptualHash(data)
	if err != nil {
		return fmt.Errorf("hashing media for %s: %w", node.ID, err)
	}

	// Every computed distance is recorded, not only threshold hits, so a
	// later reviewer can see why no edge was drawn.
	distances := make(map[string]any)
	var edges []*graph.Edge
	for _, other := range a.store.ReportsWithHash(node.ID) {
		otherHash, _ := other.Attrs["phash"].(string)
		dist, err := hammingDistance(hash, otherHash)
		if err != nil {
			continue
		}
		distances[other.ID] = dist

		var kind graph.EdgeKind
		switch {
		case dist <= repostMaxDistance:
			kind = graph.EdgeKindRepostOf
		case dist <= mutationMaxDistance:
			kind = graph.EdgeKindMutationOf
		default:
			continue
		}
		edges = append(edges, graph.NewEdge(ingest.NewEdgeID(), kind, node.ID, other.ID, node.CaseID, map[string]any{
			"hash_distance": dist,
		}))
	}

	attrs := map[string]any{
		"media_type":     "image",
		"phash":          hash,
		"hash_distances": distances,
	}
	if meta := extractEXIF(data); meta != nil {
		attrs["exif"] = meta
	}
	updated, err := a.store.UpdateNode(node.ID, attrs)
	if err != nil {
		return err
	}
	a.bus.Publish(graph.NodeEvent(graph.ActionUpdateNode, updated))

	for _, e := range edges {
		if err := a.store.AddEdge(e); err != nil {
			return err
		}
		a.bus.Publish(graph.EdgeEvent(e))
	}
	return nil
}

func isVideoURL(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) || strings.Contains(lower, ext+"?") {
			return true
		}
	}
	return false
}
