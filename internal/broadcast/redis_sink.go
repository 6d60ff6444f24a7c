package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliverTimeout = 5 * time.Second

// GraphUpdatesChannel returns the Pub/Sub channel name for live graph
// updates. All channels are namespaced by instance name so multiple
// casewire instances can share a Redis server.
// Pattern: casewire:{instance_name}:graph_updates
func GraphUpdatesChannel(instanceName string) string {
	return fmt.Sprintf("casewire:%s:graph_updates", instanceName)
}

// RedisSink delivers graph update messages to live viewers over Redis
// Pub/Sub. The graph itself stays in-memory; Redis is purely the delivery
// surface for anything watching the case board.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

// NewRedisSink creates a sink publishing to the instance's update channel.
// Returns an error if instanceName is empty.
func NewRedisSink(opts *redis.Options, instanceName string) (*RedisSink, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &RedisSink{
		rdb:     redis.NewClient(opts),
		channel: GraphUpdatesChannel(instanceName),
	}, nil
}

// Deliver publishes the message as JSON. Implements Subscriber; a returned
// error causes the broadcaster to drop this sink.
func (s *RedisSink) Deliver(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal graph update: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish graph update: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
