package internal

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig_NotionNeedsCredentials(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("default notion config without credentials should fail")
	}
	if !strings.Contains(err.Error(), EnvNotionAPIKey) {
		t.Errorf("error should name %s: %v", EnvNotionAPIKey, err)
	}
}

func TestDefaultConfig_SQLiteNeedsNoCredentials(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Backend = StoreSQLite
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sqlite config should pass: %v", err)
	}
}

func TestStoreConfig_InvalidBackend(t *testing.T) {
	cfg := StoreConfig{Backend: "postgres"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestApplicationConfig_InvalidLogFormat(t *testing.T) {
	cfg := ApplicationConfig{LogFormat: "xml"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown log format should fail validation")
	}
}

func TestNotionConfig_NegativeTimeout(t *testing.T) {
	cfg := NotionConfig{Token: "t", ProjectsDatabaseID: "p", ChatsDatabaseID: "c", Timeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative timeout should fail validation")
	}
}

func TestApplyEnv_Notion(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.ApplyEnv(envFrom(map[string]string{
		EnvNotionAPIKey:       "secret_abc",
		EnvProjectsDatabaseID: "proj",
		EnvChatsDatabaseID:    "chats",
		EnvLogLevel:           "debug",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Notion.Token != "secret_abc" || cfg.Notion.ProjectsDatabaseID != "proj" || cfg.Notion.ChatsDatabaseID != "chats" {
		t.Errorf("notion config = %+v", cfg.Notion)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.App.LogLevel)
	}
	if !cfg.Context.AutoCreateProjects {
		t.Error("auto create should stay on when unset")
	}
}

func TestApplyEnv_AutoCreateProjects(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"false", false},
		{"true", true},
		{"0", true},
		{"", true},
		{"FALSE", true},
	}
	for _, tt := range tests {
		cfg := NewDefaultConfig()
		cfg.Store.Backend = StoreSQLite
		if err := cfg.ApplyEnv(envFrom(map[string]string{EnvAutoCreateProjects: tt.value})); err != nil {
			t.Fatalf("ApplyEnv(%q): %v", tt.value, err)
		}
		if cfg.Context.AutoCreateProjects != tt.want {
			t.Errorf("%s=%q: auto create = %v, want %v", EnvAutoCreateProjects, tt.value, cfg.Context.AutoCreateProjects, tt.want)
		}
	}
}

func TestApplyEnv_SQLiteBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.ApplyEnv(envFrom(map[string]string{
		EnvStore:      "SQLite",
		EnvSQLitePath: "/tmp/ctx.db",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Store.Backend != StoreSQLite || cfg.SQLite.Path != "/tmp/ctx.db" {
		t.Errorf("store = %q, sqlite path = %q", cfg.Store.Backend, cfg.SQLite.Path)
	}
}

func TestApplyEnv_BadLogLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Backend = StoreSQLite
	if err := cfg.ApplyEnv(envFrom(map[string]string{EnvLogLevel: "loud"})); err == nil {
		t.Fatal("invalid log level should fail")
	}
}

func TestLoadConfig_EnvSelectsBackendOverFile(t *testing.T) {
	for _, k := range []string{EnvNotionAPIKey, EnvProjectsDatabaseID, EnvChatsDatabaseID} {
		t.Setenv(k, "")
	}
	dbPath := filepath.Join(t.TempDir(), "ctx.db")

	cfg, err := LoadConfig(filepath.Join("..", "config", "config.example.yaml"), true, envFrom(map[string]string{
		EnvStore:      StoreSQLite,
		EnvSQLitePath: dbPath,
	}))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Backend != StoreSQLite || cfg.SQLite.Path != dbPath {
		t.Errorf("store = %q, sqlite path = %q", cfg.Store.Backend, cfg.SQLite.Path)
	}
	if cfg.Context.DefaultProject != "General Inquiries" {
		t.Errorf("default project = %q", cfg.Context.DefaultProject)
	}
}

func TestLoadConfig_ExampleFileStillNeedsCredentials(t *testing.T) {
	for _, k := range []string{EnvNotionAPIKey, EnvProjectsDatabaseID, EnvChatsDatabaseID} {
		t.Setenv(k, "")
	}
	cfg, err := LoadConfig(filepath.Join("..", "config", "config.example.yaml"), true, envFrom(nil))
	if err == nil {
		t.Fatal("notion backend without credentials should fail")
	}
	if cfg == nil {
		t.Fatal("config should be returned alongside a validation error")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	env := envFrom(map[string]string{EnvStore: StoreSQLite})

	if _, err := LoadConfig(missing, true, env); err == nil {
		t.Error("an explicit config path must exist")
	}
	if _, err := LoadConfig(missing, false, env); err != nil {
		t.Errorf("the default config path may be absent: %v", err)
	}
}

func TestNotionConfig_CoverURL(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Notion.CoverURL != DefaultChatCoverURL {
		t.Errorf("cover url = %q", cfg.Notion.CoverURL)
	}

	cfg.Notion.CoverURL = "not a url"
	if err := cfg.Notion.Validate(); err == nil || !strings.Contains(err.Error(), "CoverURL") {
		t.Errorf("invalid cover url should fail, got %v", err)
	}
}
