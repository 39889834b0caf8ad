package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
queries:
  - "веб дизайнер"
  - "ui ux"
sources: [hh, habr]
max_pages: 5
page_delay: 3s
incremental_schedule: "@every 15m"
full_schedule: "0 4 * * *"
store_path: /tmp/vac.db
purge_max_age: 168h
notification:
  type: telegram
  telegram_token: "123:abc"
  telegram_chat_id: "-100500"
ai:
  enabled: true
  model: gpt-4o-mini
  api_key: sk-test
  timeout: 20s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Queries) != 2 || cfg.Queries[0] != "веб дизайнер" {
		t.Errorf("queries = %v", cfg.Queries)
	}
	if len(cfg.Sources) != 2 {
		t.Errorf("sources = %v", cfg.Sources)
	}
	if cfg.MaxPages != 5 || cfg.PageDelay != 3*time.Second {
		t.Errorf("paging = %d / %v", cfg.MaxPages, cfg.PageDelay)
	}
	if cfg.PurgeMaxAge != 168*time.Hour {
		t.Errorf("purge_max_age = %v", cfg.PurgeMaxAge)
	}
	if cfg.Notification.Type != "telegram" || cfg.Notification.TelegramChat != "-100500" {
		t.Errorf("notification = %+v", cfg.Notification)
	}
	if !cfg.AI.Enabled || cfg.AI.Timeout != 20*time.Second {
		t.Errorf("ai = %+v", cfg.AI)
	}
	if cfg.AI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("ai.base_url default = %q", cfg.AI.BaseURL)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
queries: ["дизайнер"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Sources) != 5 {
		t.Errorf("default sources = %v", cfg.Sources)
	}
	if cfg.MaxPages != 3 {
		t.Errorf("default max_pages = %d", cfg.MaxPages)
	}
	if cfg.IncrementalSchedule != "@every 30m" || cfg.FullSchedule != "0 3 * * *" {
		t.Errorf("default schedules = %q / %q", cfg.IncrementalSchedule, cfg.FullSchedule)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("default notification type = %q", cfg.Notification.Type)
	}
	if cfg.StorePath != "vacradar.db" {
		t.Errorf("default store_path = %q", cfg.StorePath)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("VACRADAR_TEST_TOKEN", "999:secret")
	path := writeConfig(t, `
queries: ["дизайнер"]
notification:
  type: telegram
  telegram_token: "${VACRADAR_TEST_TOKEN}"
  telegram_chat_id: "42"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Notification.TelegramToken != "999:secret" {
		t.Errorf("token = %q, want expanded env value", cfg.Notification.TelegramToken)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no queries",
			yaml:    `sources: [hh]`,
			wantErr: "at least one search query",
		},
		{
			name: "unknown source",
			yaml: `
queries: ["дизайнер"]
sources: [linkedin]
`,
			wantErr: "unknown source",
		},
		{
			name: "telegram without token",
			yaml: `
queries: ["дизайнер"]
notification:
  type: telegram
  telegram_chat_id: "42"
`,
			wantErr: "telegram_token",
		},
		{
			name: "ai enabled without key",
			yaml: `
queries: ["дизайнер"]
ai:
  enabled: true
  model: gpt-4o-mini
`,
			wantErr: "ai.api_key",
		},
		{
			name: "bad notification type",
			yaml: `
queries: ["дизайнер"]
notification:
  type: carrier-pigeon
`,
			wantErr: "notification.type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want contains %q", err, tt.wantErr)
			}
		})
	}
}
