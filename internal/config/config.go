package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"abbrev-quiz-service/internal/game"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Pool struct {
		TTL string `yaml:"ttl"`
	} `yaml:"pool"`
	Game struct {
		StartingLives  int    `yaml:"startingLives"`
		BonusThreshold string `yaml:"bonusThreshold"`
		GameOverDelay  string `yaml:"gameOverDelay"`
		VibrationPulse string `yaml:"vibrationPulse"`
	} `yaml:"game"`
	Sessions struct {
		IdleTTL       string `yaml:"idleTTL"`
		SweepInterval string `yaml:"sweepInterval"`
	} `yaml:"sessions"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but treats a missing file as an empty config.
// The returned bool reports whether the file existed.
func LoadOrDefault(path string) (Config, bool, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, false, nil
	}
	return cfg, true, err
}

// Rules builds game rules, falling back to the defaults for unset values.
func (c Config) Rules() game.Rules {
	rules := game.DefaultRules()
	if c.Game.StartingLives > 0 {
		rules.StartingLives = c.Game.StartingLives
	}
	rules.BonusThreshold = positiveDuration(c.Game.BonusThreshold, rules.BonusThreshold)
	rules.GameOverDelay = positiveDuration(c.Game.GameOverDelay, rules.GameOverDelay)
	rules.VibrationPulse = positiveDuration(c.Game.VibrationPulse, rules.VibrationPulse)
	return rules
}

// positiveDuration is TTLDuration that also rejects zero and negative values.
func positiveDuration(raw string, fallback time.Duration) time.Duration {
	if d := TTLDuration(raw, fallback); d > 0 {
		return d
	}
	return fallback
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
