package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/models"
)

// Publisher is the subset of the redis client used by RedisNotifier
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisNotifier publishes each change on a pub/sub channel
type RedisNotifier struct {
	client  Publisher
	channel string
	logger  *logrus.Logger
}

// NewRedisNotifier connects to redis and verifies the connection
func NewRedisNotifier(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisNotifierWithClient(client, cfg.Channel, logger), nil
}

// NewRedisNotifierWithClient creates a notifier on an existing client
func NewRedisNotifierWithClient(client Publisher, channel string, logger *logrus.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Name implements Notifier
func (n *RedisNotifier) Name() string { return "redis" }

// Notify implements Notifier
func (n *RedisNotifier) Notify(ctx context.Context, changes []models.OddsChange) error {
	for _, change := range changes {
		payload, err := json.Marshal(change)
		if err != nil {
			return fmt.Errorf("failed to encode odds change: %w", err)
		}
		if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
			return fmt.Errorf("failed to publish odds change on %s: %w", n.channel, err)
		}
	}

	n.logger.WithFields(logrus.Fields{
		"channel": n.channel,
		"changes": len(changes),
	}).Debug("Published odds changes")
	return nil
}

// Close closes the client
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
