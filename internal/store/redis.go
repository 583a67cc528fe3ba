package store

import (
	"context"

	"github.com/redis/go-redis/v9"

	"campustrack/internal/config"
)

// Redis backs the session store. Timeouts come from config and default
// short: a slow Redis must not stall login or the per-request session
// check.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the session-store client.
func NewRedis(cfg config.App) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DialTimeout:  cfg.RedisDialTimeout,
		ReadTimeout:  cfg.RedisReadTimeout,
		WriteTimeout: cfg.RedisWriteTimeout,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
