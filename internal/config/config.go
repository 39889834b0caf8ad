// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkorchagin/vacradar/internal/adapter"
)

// Config is the root configuration for the vacradar monitor.
type Config struct {
	Queries             []string
	Sources             []string
	MaxPages            int
	PageDelay           time.Duration
	IncrementalSchedule string
	FullSchedule        string
	StorePath           string
	PurgeMaxAge         time.Duration
	Filters             FilterConfig
	Notification        NotificationConfig
	AI                  AIConfig
}

// FilterConfig holds relevance keyword overrides. Empty lists fall back to
// the built-in design-profile keywords.
type FilterConfig struct {
	IncludeKeywords []string `yaml:"include_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type          string `yaml:"type"`             // "log" or "telegram"
	TelegramToken string `yaml:"telegram_token"`   // required if type is "telegram"
	TelegramChat  string `yaml:"telegram_chat_id"` // required if type is "telegram"
}

// AIConfig controls the optional AI enrichment stage.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	Queries             []string           `yaml:"queries"`
	Sources             []string           `yaml:"sources"`
	MaxPages            int                `yaml:"max_pages"`
	PageDelay           string             `yaml:"page_delay"`
	IncrementalSchedule string             `yaml:"incremental_schedule"`
	FullSchedule        string             `yaml:"full_schedule"`
	StorePath           string             `yaml:"store_path"`
	PurgeMaxAge         string             `yaml:"purge_max_age"`
	Filters             FilterConfig       `yaml:"filters"`
	Notification        NotificationConfig `yaml:"notification"`
	AI                  rawAIConfig        `yaml:"ai"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Environment variable references in the file are expanded
// before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	pageDelay := 2 * time.Second
	if raw.PageDelay != "" {
		pageDelay, err = time.ParseDuration(raw.PageDelay)
		if err != nil {
			return nil, fmt.Errorf("parse page_delay %q: %w", raw.PageDelay, err)
		}
	}

	purgeMaxAge := 30 * 24 * time.Hour
	if raw.PurgeMaxAge != "" {
		purgeMaxAge, err = time.ParseDuration(raw.PurgeMaxAge)
		if err != nil {
			return nil, fmt.Errorf("parse purge_max_age %q: %w", raw.PurgeMaxAge, err)
		}
	}

	aiTimeout := 30 * time.Second
	if raw.AI.Timeout != "" {
		aiTimeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	aiBaseURL := raw.AI.BaseURL
	if aiBaseURL == "" {
		aiBaseURL = defaultOpenAIBaseURL
	}

	cfg := &Config{
		Queries:             raw.Queries,
		Sources:             raw.Sources,
		MaxPages:            raw.MaxPages,
		PageDelay:           pageDelay,
		IncrementalSchedule: raw.IncrementalSchedule,
		FullSchedule:        raw.FullSchedule,
		StorePath:           raw.StorePath,
		PurgeMaxAge:         purgeMaxAge,
		Filters:             raw.Filters,
		Notification:        raw.Notification,
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: aiBaseURL,
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: aiTimeout,
		},
	}
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.Sources) == 0 {
		cfg.Sources = adapter.Names()
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 3
	}
	if cfg.IncrementalSchedule == "" {
		cfg.IncrementalSchedule = "@every 30m"
	}
	if cfg.FullSchedule == "" {
		cfg.FullSchedule = "0 3 * * *"
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "vacradar.db"
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
}

func validate(cfg *Config) error {
	if len(cfg.Queries) == 0 {
		return fmt.Errorf("at least one search query is required")
	}
	known := adapter.Names()
	for _, s := range cfg.Sources {
		if !slices.Contains(known, s) {
			return fmt.Errorf("unknown source %q (supported: %v)", s, known)
		}
	}
	if cfg.MaxPages < 1 {
		return fmt.Errorf("max_pages must be positive, got %d", cfg.MaxPages)
	}
	if cfg.PageDelay < 0 {
		return fmt.Errorf("page_delay must not be negative, got %v", cfg.PageDelay)
	}

	switch cfg.Notification.Type {
	case "log":
	case "telegram":
		if cfg.Notification.TelegramToken == "" {
			return fmt.Errorf("notification.telegram_token is required when type is \"telegram\"")
		}
		if cfg.Notification.TelegramChat == "" {
			return fmt.Errorf("notification.telegram_chat_id is required when type is \"telegram\"")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"telegram\", got %q", cfg.Notification.Type)
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}
	return nil
}
