package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

func TestRedisRateLimitStore_FailsOpenWhenRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	m := NewMetrics()
	store := NewRedisRateLimitStore(client).WithMetrics(m)
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}

	allowed, retryAfter := store.Allow(context.Background(), "client-1", config)
	if !allowed {
		t.Fatal("expected fail-open when Redis is unreachable")
	}
	if retryAfter != 0 {
		t.Errorf("expected retryAfter 0, got %d", retryAfter)
	}

	if got := testutil.ToFloat64(m.rateLimitRedisErrors); got != 1 {
		t.Errorf("expected the fail-open event counted, got %v", got)
	}
}
