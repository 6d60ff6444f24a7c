package agents

import (
	"fmt"
	"time"

	"github.com/casewire/casewire/internal/broadcast"
	"github.com/casewire/casewire/internal/scheduler"
	"github.com/casewire/casewire/pkg/graph"
)

// Deps carries everything the agents need. Store and Bus are required;
// nil providers fall back to the in-process heuristic defaults.
type Deps struct {
	Store *graph.Store
	Bus   *broadcast.Broadcaster

	Extractor   ClaimExtractor
	FactChecker FactChecker
	Searcher    EvidenceSearcher
	Synthesizer Synthesizer
	Fetcher     MediaFetcher
	Video       VideoAnalyzer
}

func (d *Deps) applyDefaults() error {
	if d.Store == nil || d.Bus == nil {
		return fmt.Errorf("agents: Store and Bus are required")
	}
	if d.Extractor == nil {
		d.Extractor = HeuristicExtractor{}
	}
	if d.FactChecker == nil {
		d.FactChecker = NoopFactChecker{}
	}
	if d.Searcher == nil {
		d.Searcher = NoopEvidenceSearcher{}
	}
	if d.Synthesizer == nil {
		d.Synthesizer = TemplateSynthesizer{}
	}
	if d.Fetcher == nil {
		d.Fetcher = NewHTTPFetcher()
	}
	if d.Video == nil {
		d.Video = NoopVideoAnalyzer{}
	}
	return nil
}

// hasMedia guards the forensics source: only reports carrying a media URL.
func hasMedia(ev graph.Event) bool {
	if ev.Node == nil {
		return false
	}
	url, _ := ev.Node.Attrs["media_url"].(string)
	return url != ""
}

// hasClaims guards the sources that need extracted claims to exist.
func hasClaims(ev graph.Event) bool {
	if ev.Node == nil {
		return false
	}
	claims, ok := ev.Node.Attrs["claims"].([]any)
	return ok && len(claims) > 0
}

// RegisterAll registers every analysis agent with the scheduler. Cooldown
// overrides are keyed by source name; unlisted sources keep their default.
func RegisterAll(s *scheduler.Scheduler, deps Deps, cooldowns map[string]time.Duration) error {
	if err := deps.applyDefaults(); err != nil {
		return err
	}

	clustering := &clusteringAgent{store: deps.Store, bus: deps.Bus}
	forensics := &forensicsAgent{store: deps.Store, bus: deps.Bus, fetcher: deps.Fetcher, video: deps.Video}
	network := &networkAgent{store: deps.Store, bus: deps.Bus, extractor: deps.Extractor, checker: deps.FactChecker}
	crossref := &crossrefAgent{store: deps.Store, bus: deps.Bus, searcher: deps.Searcher}
	classifier := &classifierAgent{store: deps.Store, bus: deps.Bus}
	recluster := &reclusterAgent{store: deps.Store, bus: deps.Bus}
	synthesizer := &synthesizerAgent{store: deps.Store, bus: deps.Bus, provider: deps.Synthesizer}

	sources := []*scheduler.Source{
		{
			Name:     "clustering",
			Priority: scheduler.PriorityCritical,
			Triggers: []string{"node:report", "edge:repost_of", "edge:mutation_of"},
			Cooldown: 2 * time.Second,
			Handler:  clustering.handle,
		},
		{
			Name:     "forensics",
			Priority: scheduler.PriorityHigh,
			Triggers: []string{"node:report"},
			Guard:    hasMedia,
			Cooldown: 2 * time.Second,
			Handler:  forensics.handle,
		},
		{
			Name:     "network",
			Priority: scheduler.PriorityMedium,
			Triggers: []string{"node:report"},
			Cooldown: 1 * time.Second,
			Handler:  network.handle,
		},
		{
			Name:     "crossref",
			Priority: scheduler.PriorityMedium,
			Triggers: []string{"update:report"},
			Guard:    hasClaims,
			Cooldown: 3 * time.Second,
			Handler:  crossref.handle,
		},
		{
			Name:     "classifier",
			Priority: scheduler.PriorityLow,
			Triggers: []string{
				"edge:similar_to", "edge:repost_of", "edge:mutation_of",
				"edge:debunked_by", "edge:amplified_by",
				"node:fact_check", "node:external_source",
			},
			Cooldown: 2 * time.Second,
			Handler:  classifier.handle,
		},
		{
			Name:     "recluster_debunk",
			Priority: scheduler.PriorityHigh,
			Triggers: []string{"edge:debunked_by"},
			Cooldown: 1 * time.Second,
			Handler:  recluster.handle,
		},
		{
			Name:     "synthesizer",
			Priority: scheduler.PriorityBackground,
			Triggers: []string{"update:report"},
			Guard:    hasClaims,
			Cooldown: 5 * time.Second,
			Handler:  synthesizer.handle,
		},
	}

	for _, src := range sources {
		if d, ok := cooldowns[src.Name]; ok {
			src.Cooldown = d
		}
		if err := s.Register(src); err != nil {
			return fmt.Errorf("registering %s: %w", src.Name, err)
		}
	}
	return nil
}
