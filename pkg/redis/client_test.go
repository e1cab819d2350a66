package redis

import (
	"testing"

	"github.com/anaghvyas/trystyle-backend/pkg/config"
)

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	t.Parallel()

	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	t.Parallel()

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pass@localhost:6380/2"})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("addr = %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("db = %d", opts.DB)
	}
}

func TestKeyBuilders(t *testing.T) {
	t.Parallel()

	c := &Client{}
	if got := c.IdempotencyKey("orders", "abc"); got != "ts:idempotency:orders:abc" {
		t.Fatalf("idempotency key = %q", got)
	}
	if got := c.RateLimitKey("api:user-1"); got != "ts:rate_limit:api:user-1" {
		t.Fatalf("rate limit key = %q", got)
	}
	if got := c.LockKey("sweep"); got != "ts:lock:sweep" {
		t.Fatalf("lock key = %q", got)
	}
}
