// Package scheduler implements the blackboard scheduling engine: it watches
// every graph mutation, decides which knowledge source runs next, and
// enforces cooldowns, per-case fan-out limits and at-most-one-concurrent
// execution per (source, case).
package scheduler

import (
	"container/heap"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/casewire/casewire/pkg/graph"
)

// MaxDispatchesPerCase caps how many tasks a single case may trigger over
// its lifetime. Once reached, further notifications for the case are dropped
// - a circuit breaker against unbounded agent cascades. The counter never
// resets or decays: a case that has burned its budget stays throttled.
const MaxDispatchesPerCase = 10

// pollInterval bounds the dispatch loop's wait on an empty queue, so
// cancellation is observed promptly even when nothing is arriving.
const pollInterval = 500 * time.Millisecond

// Scheduler is the core state machine. One long-lived dispatch loop pops the
// lowest-priority-number, earliest-sequence task and executes it to
// completion before popping the next: execution is fully serialized across
// all sources and cases, and an in-flight task is never preempted by a
// later-arriving higher-priority one.
//
// All mutable state is guarded by a single mutex. The single dispatch loop
// alone would guarantee at-most-one execution per (source, case), but
// Notify is called from the broadcaster's forwarding goroutine while the
// loop runs, so the guarantee cannot be left to the runtime.
type Scheduler struct {
	mu         sync.Mutex
	sources    []*Source
	queue      taskQueue
	active     map[string]struct{} // "source:case" keys with an in-flight or queued task
	dispatches map[string]int      // case ID -> lifetime dispatch count
	seq        uint64
	running    bool

	wake chan struct{}
	now  func() time.Time
}

// New creates a scheduler with no registered sources.
func New() *Scheduler {
	return &Scheduler{
		active:     make(map[string]struct{}),
		dispatches: make(map[string]int),
		wake:       make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Register adds a knowledge source. Registration is static: it fails once
// the dispatch loop is running, and source names must be unique.
func (s *Scheduler) Register(src *Source) error {
	if err := src.Validate(); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("cannot register source %s: scheduler is running", src.Name)
	}
	for _, existing := range s.sources {
		if existing.Name == src.Name {
			return fmt.Errorf("source %s already registered", src.Name)
		}
	}
	src.lastRun = make(map[string]time.Time)
	s.sources = append(s.sources, src)
	return nil
}

// Notify evaluates a graph event against every registered source and
// enqueues a task for each one that fires. Called by the broadcaster after
// every mutation.
//
// An event without a case ID is ignored. A case that has reached its
// dispatch cap is silently dropped: deliberate backpressure, not an error.
func (s *Scheduler) Notify(ev graph.Event) {
	if ev.CaseID == "" {
		return
	}

	s.mu.Lock()
	if s.dispatches[ev.CaseID] >= MaxDispatchesPerCase {
		s.mu.Unlock()
		return
	}

	now := s.now()
	fired := 0
	for _, src := range s.sources {
		if !src.canFire(ev, s.active, now) {
			continue
		}
		s.active[src.Name+":"+ev.CaseID] = struct{}{}
		s.dispatches[ev.CaseID]++
		s.seq++
		heap.Push(&s.queue, &task{
			priority:   src.Priority,
			seq:        s.seq,
			source:     src,
			event:      ev,
			enqueuedAt: now,
		})
		fired++
	}
	s.mu.Unlock()

	if fired > 0 {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

// Run starts the dispatch loop and blocks until ctx is cancelled. Each task
// runs to completion before the next is popped; cancellation is observed at
// the next poll boundary, so an in-flight handler is allowed to finish
// (cooperative, never forced).
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logEvent("scheduler_started", map[string]any{"sources": s.SourceCount()})
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logEvent("scheduler_stopped", nil)
	}()

	for {
		t := s.pop()
		if t == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-s.wake:
			case <-time.After(pollInterval):
			}
			continue
		}

		s.execute(ctx, t)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// pop removes and returns the highest-urgency task, or nil when the queue is
// empty.
func (s *Scheduler) pop() *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 {
		return nil
	}
	return heap.Pop(&s.queue).(*task)
}

// execute runs one task to completion. The last-run timestamp is recorded at
// task start, not completion, so the cooldown window is measured from the
// previous fire's start. Handler failures and panics are caught here, logged
// and never escape the dispatch boundary; the active flag is always cleared.
func (s *Scheduler) execute(ctx context.Context, t *task) {
	key := t.source.Name + ":" + t.event.CaseID
	start := s.now()

	s.mu.Lock()
	t.source.lastRun[t.event.CaseID] = start
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logEvent("source_panicked", map[string]any{
				"source":  t.source.Name,
				"case_id": t.event.CaseID,
				"panic":   fmt.Sprint(r),
			})
		}
		s.mu.Lock()
		delete(s.active, key)
		s.mu.Unlock()
	}()

	if err := t.source.Handler(ctx, t.event); err != nil {
		s.logEvent("source_failed", map[string]any{
			"source":  t.source.Name,
			"case_id": t.event.CaseID,
			"event":   t.event.Type,
			"error":   err.Error(),
		})
		return
	}

	s.logEvent("source_completed", map[string]any{
		"source":     t.source.Name,
		"case_id":    t.event.CaseID,
		"event":      t.event.Type,
		"priority":   t.priority.String(),
		"latency_ms": s.now().Sub(t.enqueuedAt).Milliseconds(),
	})
}

// SourceCount returns the number of registered knowledge sources.
func (s *Scheduler) SourceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sources)
}

// SourceInfo describes one registered knowledge source.
type SourceInfo struct {
	Name     string        `json:"name"`
	Priority Priority      `json:"priority"`
	Cooldown time.Duration `json:"cooldown"`
}

// Sources lists the registered knowledge sources, most urgent first.
func (s *Scheduler) Sources() []SourceInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]SourceInfo, 0, len(s.sources))
	for _, src := range s.sources {
		infos = append(infos, SourceInfo{Name: src.Name, Priority: src.Priority, Cooldown: src.Cooldown})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Priority != infos[j].Priority {
			return infos[i].Priority < infos[j].Priority
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Health is a point-in-time introspection snapshot of the scheduler.
type Health struct {
	Sources int  `json:"knowledge_sources"`
	Running bool `json:"running"`
	Queued  int  `json:"queued_tasks"`
	Active  int  `json:"active_tasks"`
}

// Health returns the current scheduler state for health endpoints.
func (s *Scheduler) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Health{
		Sources: len(s.sources),
		Running: s.running,
		Queued:  s.queue.Len(),
		Active:  len(s.active),
	}
}

// logEvent logs a structured event in JSON format.
func (s *Scheduler) logEvent(eventType string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "scheduler"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Scheduler] Failed to marshal log event: %v", err)
		return
	}
	log.Println(string(jsonData))
}
