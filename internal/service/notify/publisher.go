package notify

import (
	"context"

	"github.com/redis/go-redis/v9"

	"farm2go/pkg/push"
)

// Publisher delivers a serialized notification to a per-recipient topic.
// The fan-out engine writes to every configured publisher; persistence
// already happened, so a publish failure costs latency, not data.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Name() string
}

// RedisPublisher publishes over Redis pub/sub, the primary realtime
// channel shared across processes.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a Redis pub/sub publisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish publishes payload to topic
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.Publish(ctx, topic, payload).Err()
}

// Name returns the channel name
func (p *RedisPublisher) Name() string {
	return "redis"
}

// BrokerPublisher publishes to the in-process broker, the secondary
// channel reaching same-process subscribers without a network hop.
type BrokerPublisher struct {
	broker *push.Broker
}

// NewBrokerPublisher creates an in-process broker publisher
func NewBrokerPublisher(broker *push.Broker) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

// Publish publishes payload to topic
func (p *BrokerPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.broker.Publish(ctx, topic, payload)
}

// Name returns the channel name
func (p *BrokerPublisher) Name() string {
	return "push"
}
