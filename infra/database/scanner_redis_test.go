package database

import (
	"context"
	"testing"
)

func TestDefaultRedisConfig(t *testing.T) {
	t.Setenv("REDIS_POOL_SIZE", "7")
	if got := DefaultRedisConfig().PoolSize; got != 7 {
		t.Errorf("PoolSize = %d, want 7", got)
	}

	t.Setenv("REDIS_POOL_SIZE", "nope")
	if got := DefaultRedisConfig().PoolSize; got != 20 {
		t.Errorf("PoolSize = %d, want 20", got)
	}
}

func TestNewRedisInvalidURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not-a-redis-url"); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}
