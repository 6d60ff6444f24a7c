package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/casewire/casewire/pkg/graph"
)

// Priority orders knowledge sources: lower value runs first.
//
// The rationale: clustering must run before anything else so duplicate
// reports are identified before other sources waste work on them; forensics
// and debunk reclustering react to primary evidence; claim extraction and
// cross-referencing depend on that context; role classification depends on
// the edges created above it; narrative synthesis runs last and least
// urgently.
type Priority int

const (
	PriorityCritical   Priority = 0
	PriorityHigh       Priority = 1
	PriorityMedium     Priority = 2
	PriorityLow        Priority = 3
	PriorityBackground Priority = 4
)

// String returns the human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Validate checks if the Priority is a valid enum value.
func (p Priority) Validate() error {
	if p < PriorityCritical || p > PriorityBackground {
		return fmt.Errorf("unknown priority: %d", int(p))
	}
	return nil
}

// HandlerFunc is the agent contract: it receives the triggering event, reads
// and writes the graph store, and re-publishes any mutations through the
// broadcaster. Returning an error never stops the dispatch loop - failures
// are caught at the dispatch boundary and logged. Retries are the agent's
// own business, not the scheduler's.
type HandlerFunc func(ctx context.Context, ev graph.Event) error

// GuardFunc decides whether an event should fire a source. A nil guard
// accepts everything.
type GuardFunc func(ev graph.Event) bool

// Source describes one knowledge source: a pluggable analysis agent that
// reacts to graph events under priority, cooldown and dedup control.
// Registration is static - all sources are registered before the scheduler
// starts running.
type Source struct {
	Name     string
	Priority Priority
	Triggers []string // event types, e.g. "node:report", "edge:debunked_by"
	Guard    GuardFunc
	Cooldown time.Duration
	Handler  HandlerFunc

	// lastRun is keyed by case ID and recorded at task start, so a slow
	// handler shortens its own next cooldown window. Guarded by the
	// scheduler's mutex.
	lastRun map[string]time.Time
}

// Validate checks if the Source has valid field values.
func (s *Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name cannot be empty")
	}
	if err := s.Priority.Validate(); err != nil {
		return fmt.Errorf("source %s: %w", s.Name, err)
	}
	if len(s.Triggers) == 0 {
		return fmt.Errorf("source %s has no trigger event types", s.Name)
	}
	if s.Handler == nil {
		return fmt.Errorf("source %s has no handler", s.Name)
	}
	if s.Cooldown < 0 {
		return fmt.Errorf("source %s has negative cooldown", s.Name)
	}
	return nil
}

// canFire reports whether the event should enqueue a task for this source.
// Must be called with the scheduler's mutex held.
func (s *Source) canFire(ev graph.Event, active map[string]struct{}, now time.Time) bool {
	if !s.triggersOn(ev.Type) {
		return false
	}
	if s.Guard != nil && !s.Guard(ev) {
		return false
	}
	if ev.CaseID == "" {
		return false
	}
	if _, running := active[s.Name+":"+ev.CaseID]; running {
		return false
	}
	if last, ok := s.lastRun[ev.CaseID]; ok && now.Sub(last) < s.Cooldown {
		return false
	}
	return true
}

func (s *Source) triggersOn(eventType string) bool {
	for _, t := range s.Triggers {
		if t == eventType {
			return true
		}
	}
	return false
}
