// Package notify fans ticket notifications out to other processes.
package notify

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Topics published by the service and the sweep.
const (
	TopicEvents   = "events"
	TopicUnread   = "unread"
	TopicOpenSums = "open"
)

// Publisher delivers one payload on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// UnreadNotice tells one creator which of their tickets changed.
type UnreadNotice struct {
	ActorKey  string `json:"actor_key"`
	Creator   string `json:"creator"`
	TicketIDs []int  `json:"ticket_ids"`
}

// OpenSummary counts open tickets overall and per assignee.
type OpenSummary struct {
	Open       int            `json:"open"`
	Unassigned int            `json:"unassigned"`
	ByAssignee map[string]int `json:"by_assignee"`
}

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes JSON payloads on "<prefix>.<topic>" channels.
type RedisPublisher struct {
	client redisPublishClient
	prefix string
}

// NewRedisPublisher wraps client. prefix namespaces every channel.
func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the redis channel used for topic.
func (p *RedisPublisher) Channel(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

// Publish encodes payload and sends it.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.Channel(topic), data).Err()
}

// LogPublisher writes payloads to the log. It stands in when no broker is
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the payload at info level.
func (p *LogPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.logger.Info("notification", zap.String("topic", topic), zap.Any("payload", payload))
	return nil
}
