package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAndRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
redis:
  addr: localhost:6379
  ttl: 5m
game:
  startingLives: 6
  bonusThreshold: 8s
sessions:
  idleTTL: 45m
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, found, err := LoadOrDefault(path)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	rules := cfg.Rules()
	if rules.StartingLives != 6 || rules.BonusThreshold != 8*time.Second {
		t.Fatalf("expected overrides, got %+v", rules)
	}
	if rules.GameOverDelay != 1500*time.Millisecond || rules.BasePoints != 1 {
		t.Fatalf("expected defaults for unset rules, got %+v", rules)
	}
	if got := TTLDuration(cfg.Sessions.IdleTTL, time.Minute); got != 45*time.Minute {
		t.Fatalf("expected 45m idle ttl, got %v", got)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, found, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || found {
		t.Fatalf("expected silent default, got found=%v err=%v", found, err)
	}
	if cfg.Rules().StartingLives != 3 {
		t.Fatalf("expected default rules")
	}
}

func TestTTLDurationFallsBackOnGarbage(t *testing.T) {
	if got := TTLDuration("soon", 2*time.Second); got != 2*time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestRulesRejectNonPositiveDurations(t *testing.T) {
	var cfg Config
	cfg.Game.GameOverDelay = "0s"
	cfg.Game.BonusThreshold = "-5s"
	cfg.Game.VibrationPulse = "0ms"

	rules := cfg.Rules()
	if rules.GameOverDelay != 1500*time.Millisecond {
		t.Fatalf("expected default game-over delay, got %v", rules.GameOverDelay)
	}
	if rules.BonusThreshold != 10*time.Second || rules.VibrationPulse != 100*time.Millisecond {
		t.Fatalf("expected defaults for non-positive durations, got %+v", rules)
	}
}
