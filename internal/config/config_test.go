package config

import (
	"testing"
	"time"
)

func TestDurOr(t *testing.T) {
	t.Setenv("TEST_DUR", "")
	if d := durOr("TEST_DUR", 10*time.Minute); d != 10*time.Minute {
		t.Fatalf("unset: got %s, want 10m", d)
	}
	t.Setenv("TEST_DUR", "30s")
	if d := durOr("TEST_DUR", 10*time.Minute); d != 30*time.Second {
		t.Fatalf("set: got %s, want 30s", d)
	}
	t.Setenv("TEST_DUR", "garbage")
	if d := durOr("TEST_DUR", 10*time.Minute); d != 10*time.Minute {
		t.Fatalf("invalid: got %s, want fallback 10m", d)
	}
	t.Setenv("TEST_DUR", "-5s")
	if d := durOr("TEST_DUR", 10*time.Minute); d != 10*time.Minute {
		t.Fatalf("negative: got %s, want fallback 10m", d)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")
	if !envBool("TEST_BOOL", false) {
		t.Error("yes should parse as true")
	}
	t.Setenv("TEST_BOOL", "off")
	if envBool("TEST_BOOL", true) {
		t.Error("off should parse as false")
	}
	t.Setenv("TEST_BOOL", "maybe")
	if !envBool("TEST_BOOL", true) {
		t.Error("unparseable value should fall back to default")
	}

	t.Setenv("TEST_INT", "42")
	if n := envInt("TEST_INT", 1); n != 42 {
		t.Errorf("got %d, want 42", n)
	}
	t.Setenv("TEST_INT", "x")
	if n := envInt("TEST_INT", 1); n != 1 {
		t.Errorf("invalid int: got %d, want default 1", n)
	}
}

func TestParseMethods(t *testing.T) {
	m := parseMethods("get, head ,POST")
	for _, want := range []string{"GET", "HEAD", "POST"} {
		if !m[want] {
			t.Errorf("%s missing from %v", want, m)
		}
	}
	if len(m) != 3 {
		t.Errorf("got %d methods, want 3", len(m))
	}
}

func TestLoadRateLimitConfigNormalisation(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity < 1 {
		t.Errorf("capacity = %d, want >= 1", cfg.Capacity)
	}
	if cfg.RefillTokens < 1 {
		t.Errorf("refill tokens = %d, want >= 1", cfg.RefillTokens)
	}
	if cfg.TTL < 5*cfg.RefillInterval {
		t.Errorf("ttl = %s, want at least 5x refill interval", cfg.TTL)
	}
}
