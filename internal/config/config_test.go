package config

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in           string
		hour, minute int
		wantErr      bool
	}{
		{"21:10", 21, 10, false},
		{"00:00", 0, 0, false},
		{"23:59", 23, 59, false},
		{"24:00", 0, 0, true},
		{"9pm", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h != tt.hour || m != tt.minute {
				t.Errorf("expected %02d:%02d, got %02d:%02d", tt.hour, tt.minute, h, m)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DIGEST_TIME", "08:30")
	t.Setenv("DIGEST_TIMEZONE", "UTC")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("POLL_INTERVAL", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DigestTime != "08:30" {
		t.Errorf("expected digest time 08:30, got %s", cfg.DigestTime)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC location, got %s", cfg.Location())
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %s", cfg.PollInterval)
	}
	if cfg.ArchiveAfterDays != 30 {
		t.Errorf("expected default archive window of 30 days, got %d", cfg.ArchiveAfterDays)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestValidateRejectsBadDigestTime(t *testing.T) {
	cfg := &Config{
		JWTSecret:        "s",
		DigestTime:       "25:99",
		DigestTimezone:   "UTC",
		PollInterval:     time.Second,
		BatchSize:        10,
		DefaultLowFloor:  2,
		ArchiveAfterDays: 30,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected invalid digest time to fail validation")
	}
}
