// Package broadcast fans graph mutations out to live viewers and forwards a
// derived event to the scheduler. It is the only hook between the graph data
// plane and everything that reacts to it.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/casewire/casewire/pkg/graph"
)

// forwardBuffer bounds the scheduler forwarding channel. A slow scheduler
// sheds events rather than blocking graph mutation.
const forwardBuffer = 64

// Message is the wire format delivered to live viewers on every mutation.
// Type is the envelope kind (always "graph_update"); EventType carries the
// scheduler-facing event name (e.g. "node:report", "edge:similar_to") so
// viewers can filter on it.
type Message struct {
	Type      string       `json:"type"`
	EventType string       `json:"event_type"`
	Action    graph.Action `json:"action"`
	Payload   any          `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

// Subscriber is any sink that can receive graph update messages. A
// subscriber whose Deliver fails is disconnected and never retried.
type Subscriber interface {
	Deliver(msg Message) error
}

// Notifier receives the derived scheduler event for each mutation.
// Implemented by the blackboard scheduler.
type Notifier interface {
	Notify(ev graph.Event)
}

// Broadcaster is the fan-out hook invoked after every graph mutation:
// best-effort delivery to live subscribers, plus asynchronous forwarding of
// a derived event to the scheduler. A scheduler outage must never break
// graph mutation, so forwarding errors are logged and swallowed.
type Broadcaster struct {
	mu       sync.Mutex
	subs     map[Subscriber]struct{}
	events   chan graph.Event
	notifier Notifier
}

// New creates a broadcaster forwarding derived events to the notifier.
func New(notifier Notifier) *Broadcaster {
	return &Broadcaster{
		subs:     make(map[Subscriber]struct{}),
		events:   make(chan graph.Event, forwardBuffer),
		notifier: notifier,
	}
}

// Subscribe attaches a live viewer sink.
func (b *Broadcaster) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub] = struct{}{}
}

// Unsubscribe detaches a sink. Detaching an unknown sink is a no-op.
func (b *Broadcaster) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// SubscriberCount returns the number of attached sinks.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish fans a mutation event out to every subscriber and hands the event
// to the forwarding loop. Failed subscribers are dropped silently; a full
// forwarding channel is logged and the event discarded.
func (b *Broadcaster) Publish(ev graph.Event) {
	msg := Message{
		Type:      "graph_update",
		EventType: ev.Type,
		Action:    ev.Action,
		Payload:   ev.Payload(),
		Timestamp: time.Now().UTC(),
	}

	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Deliver(msg); err != nil {
			b.Unsubscribe(sub)
		}
	}

	select {
	case b.events <- ev:
	default:
		b.logEvent("forward_dropped", map[string]any{
			"event":   ev.Type,
			"case_id": ev.CaseID,
		})
	}
}

// Run consumes the forwarding channel and notifies the scheduler, one event
// at a time, until ctx is cancelled. A panicking notifier is logged, never
// propagated.
func (b *Broadcaster) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-b.events:
			b.forward(ev)
		}
	}
}

func (b *Broadcaster) forward(ev graph.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logEvent("forward_failed", map[string]any{
				"event":   ev.Type,
				"case_id": ev.CaseID,
				"panic":   fmt.Sprint(r),
			})
		}
	}()
	b.notifier.Notify(ev)
}

// logEvent logs a structured event in JSON format.
func (b *Broadcaster) logEvent(eventType string, data map[string]any) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "warn"
	data["component"] = "broadcaster"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Broadcaster] Failed to marshal log event: %v", err)
		return
	}
	log.Println(string(jsonData))
}
