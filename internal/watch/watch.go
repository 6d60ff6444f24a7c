// Package watch streams graph updates from a running engine's Redis channel,
// with optional filtering, for the watch command.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/casewire/casewire/internal/broadcast"
)

// Criteria filters graph update messages. All active filters are ANDed
// together; zero values match everything.
type Criteria struct {
	SinceTimestampMs int64  // Unix milliseconds, 0 = no lower bound
	UntilTimestampMs int64  // Unix milliseconds, 0 = no upper bound
	TypeGlob         string // Glob over the event type, e.g. "edge:*"
	CaseID           string // Exact case match
}

// Matches reports whether the message passes every active filter.
func (c *Criteria) Matches(msg broadcast.Message) bool {
	ms := msg.Timestamp.UnixMilli()
	if c.SinceTimestampMs > 0 && ms < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && ms > c.UntilTimestampMs {
		return false
	}

	if c.TypeGlob != "" {
		matched, err := filepath.Match(c.TypeGlob, msg.EventType)
		if err != nil || !matched {
			return false
		}
	}

	if c.CaseID != "" && messageCaseID(msg) != c.CaseID {
		return false
	}
	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.TypeGlob != "" ||
		c.CaseID != ""
}

func messageCaseID(msg broadcast.Message) string {
	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		return ""
	}
	caseID, _ := payload["case_id"].(string)
	return caseID
}

// Subscription delivers matching graph updates until closed.
type Subscription struct {
	events chan broadcast.Message
	errors chan error
	cancel context.CancelFunc
}

// Events returns the channel of matching messages. Closed when the
// subscription ends.
func (s *Subscription) Events() <-chan broadcast.Message { return s.events }

// Errors returns the channel of decode errors. Malformed messages are
// reported here and skipped.
func (s *Subscription) Errors() <-chan error { return s.errors }

// Close stops the subscription.
func (s *Subscription) Close() { s.cancel() }

// Subscribe attaches to an instance's graph update channel and streams
// messages matching the criteria. Delivery is at-most-once: a slow consumer
// may miss events, which is acceptable for a live viewer.
func Subscribe(ctx context.Context, rdb *redis.Client, instanceName string, crit Criteria) (*Subscription, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	pubsub := rdb.Subscribe(ctx, broadcast.GraphUpdatesChannel(instanceName))

	eventsChan := make(chan broadcast.Message, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var update broadcast.Message
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to decode graph update: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				if !crit.Matches(update) {
					continue
				}

				select {
				case eventsChan <- update:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
