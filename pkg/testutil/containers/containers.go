//go:build integration

// Package containers starts throwaway backends for integration tests. Each
// container is terminated when the test that started it ends.
package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
)

const (
	redisImage    = "redis:7-alpine"
	redpandaImage = "docker.redpanda.com/redpandadata/redpanda:v24.2.7"
)

func terminate(t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
}

// RedisURL starts Redis and returns a redis:// URL for REDIS_URL.
func RedisURL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	c, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	terminate(t, c)

	url, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}
	return url
}

// RedpandaBrokers starts a single Kafka-compatible broker and returns its
// seed address for KAFKA_BROKERS.
func RedpandaBrokers(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()
	c, err := redpanda.Run(ctx, redpandaImage)
	if err != nil {
		t.Fatalf("start redpanda: %v", err)
	}
	terminate(t, c)

	broker, err := c.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("redpanda seed broker: %v", err)
	}
	return []string{broker}
}
