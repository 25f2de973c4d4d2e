package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Telegram struct {
		Token       string `yaml:"token"`
		WebhookURL  string `yaml:"webhook_url"`
		PollTimeout string `yaml:"poll_timeout"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CacheTTL        string `yaml:"cache_ttl"`
		QuestionTimeout string `yaml:"question_timeout"`
		Shuffle         bool   `yaml:"shuffle"`
	} `yaml:"quiz"`
	Leaderboard struct {
		TopN int `yaml:"top_n"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path. The telegram token may also come from the
// BOT_API_KEY environment variable, which takes precedence over the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if token := os.Getenv("BOT_API_KEY"); token != "" {
		cfg.Telegram.Token = token
	}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		cfg.Telegram.WebhookURL = url
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// TopN returns the configured leaderboard size or the fallback when unset.
func TopN(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
