// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/canonical/care-service/internal/logging"
	"github.com/canonical/care-service/internal/monitoring"
	"github.com/canonical/care-service/internal/tracing"
)

const blacklistPrefix = "blacklist:"

// RedisBlacklist stores revoked token ids with a TTL matching their remaining lifetime
type RedisBlacklist struct {
	client *redis.Client

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Add claims jti with SETNX, only the first caller wins.
// Later callers get ErrRevokedToken, which makes refresh rotation and logout exactly-once.
func (b *RedisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	ctx, span := b.tracer.Start(ctx, "credentials.RedisBlacklist.Add")
	defer span.End()

	claimed, err := b.client.SetNX(ctx, blacklistPrefix+jti, 1, ttl).Result()
	if err != nil {
		b.setAvailability(0)
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	b.setAvailability(1)

	if !claimed {
		return ErrRevokedToken
	}

	return nil
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	ctx, span := b.tracer.Start(ctx, "credentials.RedisBlacklist.Contains")
	defer span.End()

	n, err := b.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		b.setAvailability(0)
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}

	b.setAvailability(1)

	return n > 0, nil
}

// Ping checks the redis connection, used by the readiness check
func (b *RedisBlacklist) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBlacklist) setAvailability(v float64) {
	if err := b.monitor.SetDependencyAvailability(map[string]string{"component": "redis"}, v); err != nil {
		b.logger.Debugf("failed to record redis availability: %v", err)
	}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisBlacklist(client *redis.Client, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *RedisBlacklist {
	b := new(RedisBlacklist)

	b.client = client

	b.tracer = tracer
	b.monitor = monitor
	b.logger = logger

	return b
}
