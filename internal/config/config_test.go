package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"COUNTER_TTL", "MIRROR_TIMEOUT", "MIRROR_MAX_RETRIES", "SERVER_PORT", "REDIS_URL", "WORKER_COUNT"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.CounterTTL != time.Hour {
		t.Errorf("CounterTTL = %v, want 1h", cfg.CounterTTL)
	}
	if cfg.MirrorTimeout != 2*time.Second {
		t.Errorf("MirrorTimeout = %v, want 2s", cfg.MirrorTimeout)
	}
	if cfg.MirrorMaxRetries != 3 {
		t.Errorf("MirrorMaxRetries = %d, want 3", cfg.MirrorMaxRetries)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("COUNTER_TTL", "90s")
	t.Setenv("MIRROR_MAX_RETRIES", "5")
	t.Setenv("ACTIONS_PER_SECOND", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.CounterTTL != 90*time.Second {
		t.Errorf("CounterTTL = %v, want 90s", cfg.CounterTTL)
	}
	if cfg.MirrorMaxRetries != 5 {
		t.Errorf("MirrorMaxRetries = %d, want 5", cfg.MirrorMaxRetries)
	}
	if cfg.ActionsPerSecond != 0.5 {
		t.Errorf("ActionsPerSecond = %v, want 0.5", cfg.ActionsPerSecond)
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("COUNTER_TTL", "soon")
	t.Setenv("MIRROR_MAX_RETRIES", "-1")

	cfg, _ := LoadConfig()

	if cfg.CounterTTL != time.Hour {
		t.Errorf("CounterTTL = %v, want default 1h", cfg.CounterTTL)
	}
	if cfg.MirrorMaxRetries != 3 {
		t.Errorf("MirrorMaxRetries = %d, want default 3", cfg.MirrorMaxRetries)
	}
}
