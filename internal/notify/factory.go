package notify

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/logger"
)

// FromConfig builds the log notifier plus every enabled transport
func FromConfig(ctx context.Context, cfg config.NotificationsConfig, log *logrus.Logger) (*Multi, error) {
	notifiers := []Notifier{NewLogNotifier(logger.NewOddsLogger(log))}

	if cfg.Kafka.Enabled {
		notifiers = append(notifiers, NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, log))
		log.WithField("topic", cfg.Kafka.Topic).Info("Kafka odds notifications enabled")
	}

	if cfg.Redis.Enabled {
		rn, err := NewRedisNotifier(ctx, cfg.Redis, log)
		if err != nil {
			NewMulti(notifiers...).Close()
			return nil, err
		}
		notifiers = append(notifiers, rn)
		log.WithField("channel", cfg.Redis.Channel).Info("Redis odds notifications enabled")
	}

	return NewMulti(notifiers...), nil
}
