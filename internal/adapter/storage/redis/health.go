package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck implements ports.HealthChecker for Redis.
type HealthCheck struct {
	client goredis.Cmdable
	name   string
}

// NewHealthCheck reports under name, "redis" when empty.
func NewHealthCheck(client goredis.Cmdable, name string) *HealthCheck {
	if name == "" {
		name = "redis"
	}
	return &HealthCheck{client: client, name: name}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

func (h *HealthCheck) Name() string {
	return h.name
}
