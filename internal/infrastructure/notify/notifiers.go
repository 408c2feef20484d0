package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockledger/pkg/logger"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger.Info(ctx, n.Subject,
		"event_type", n.EventType,
		"aggregate", n.Aggregate,
		"body", n.Body)
	return nil
}

// redisPublisher is the part of *redis.Client the notifier uses.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisNotifier publishes notifications as JSON on a Redis pub/sub channel.
type RedisNotifier struct {
	client  redisPublisher
	channel string
}

// NewRedisNotifier creates a notifier publishing to channel.
func NewRedisNotifier(client redisPublisher, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (r *RedisNotifier) Name() string { return "redis:" + r.channel }

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}
