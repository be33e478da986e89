package store

import (
	"context"
	"fmt"
	"time"

	"rollcall/internal/types"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewStore creates a Store based on configuration: Redis when REDIS_DSN is
// set, in-memory otherwise.
func NewStore(configManager types.ConfigManager) (Store, error) {
	redisDSN := configManager.GetRedisDSN()
	if redisDSN == "" {
		logrus.Info("Using in-memory store")
		return NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(redisDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_DSN: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logrus.Info("Using redis store")
	return NewRedisStore(client), nil
}
