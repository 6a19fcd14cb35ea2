package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RRF_K", "")
	t.Setenv("QUIZ_LOCK_TTL", "")

	cfg := Load()

	if cfg.Retrieval.RRFK != 60 {
		t.Errorf("RRFK = %d, want 60", cfg.Retrieval.RRFK)
	}
	if cfg.Coordination.LockTTL != time.Hour {
		t.Errorf("LockTTL = %v, want 1h", cfg.Coordination.LockTTL)
	}
	if cfg.Ai.MaxOutputTokens != 4096 {
		t.Errorf("MaxOutputTokens = %d, want 4096", cfg.Ai.MaxOutputTokens)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration", "90m", 90 * time.Minute},
		{"plain seconds", "3600", time.Hour},
		{"garbage falls back", "soon", 5 * time.Second},
		{"empty falls back", "", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvAsDuration("TEST_DURATION", 5*time.Second); got != tt.want {
				t.Errorf("getEnvAsDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
