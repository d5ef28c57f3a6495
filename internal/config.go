package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	pkgconfig "github.com/starford/contextbridge/pkg/config"
)

// Store backends.
const (
	StoreNotion = "notion"
	StoreSQLite = "sqlite"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Environment variables read on top of the config file.
const (
	EnvNotionAPIKey       = "NOTION_API_KEY"
	EnvProjectsDatabaseID = "NOTION_PROJECTS_DB_ID"
	EnvChatsDatabaseID    = "NOTION_CHATS_DB_ID"
	EnvAutoCreateProjects = "AUTO_CREATE_PROJECTS"
	EnvStore              = "CONTEXTBRIDGE_STORE"
	EnvSQLitePath         = "CONTEXTBRIDGE_SQLITE_PATH"
	EnvLogLevel           = "CONTEXTBRIDGE_LOG_LEVEL"
)

// DefaultChatCoverURL is the banner image put on new chat pages.
const DefaultChatCoverURL = "https://res.cloudinary.com/dcnxrirvd/image/upload/v1754489967/chats_banner_final_lp6kbb.png"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Notion  NotionConfig      `yaml:"notion"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Context ContextConfig     `yaml:"context"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	switch c.Store.Backend {
	case StoreNotion:
		if err := c.Notion.Validate(); err != nil {
			return fmt.Errorf("notion: %w", err)
		}
	case StoreSQLite:
		if err := c.SQLite.Validate(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	if err := c.Context.Validate(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

// LoadConfig builds the configuration from defaults, the YAML file at path and
// the environment, in that order, and validates the result once. A missing file
// is an error only when mustExist is set. On an overlay or validation failure the
// partially built config is returned along with the error.
func LoadConfig(path string, mustExist bool, lookup func(string) (string, bool)) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		opts := []pkgconfig.LoadOption{pkgconfig.SkipValidation()}
		if !mustExist {
			opts = append(opts, pkgconfig.Optional())
		}
		if _, err := pkgconfig.Load(path, cfg, opts...); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays the environment variables read by lookup, then validates again.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvNotionAPIKey); ok {
		c.Notion.Token = v
	}
	if v, ok := lookup(EnvProjectsDatabaseID); ok {
		c.Notion.ProjectsDatabaseID = v
	}
	if v, ok := lookup(EnvChatsDatabaseID); ok {
		c.Notion.ChatsDatabaseID = v
	}
	if v, ok := lookup(EnvAutoCreateProjects); ok {
		c.Context.AutoCreateProjects = v != "false"
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		c.Store.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(EnvSQLitePath); ok && v != "" {
		c.SQLite.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if err := c.App.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}
	return c.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// StoreConfig selects the datastore.
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StoreNotion, StoreSQLite)),
	)
}

// NotionConfig holds the Notion credential and the two database ids.
// A zero Timeout leaves requests without a deadline.
type NotionConfig struct {
	Token              string        `yaml:"token"`
	ProjectsDatabaseID string        `yaml:"projects_database_id"`
	ChatsDatabaseID    string        `yaml:"chats_database_id"`
	Timeout            time.Duration `yaml:"timeout"`
	CoverURL           string        `yaml:"cover_url"`
}

// Validate validates the Notion configuration.
func (c *NotionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required.Error("is required (set "+EnvNotionAPIKey+")")),
		validation.Field(&c.ProjectsDatabaseID, validation.Required.Error("is required (set "+EnvProjectsDatabaseID+")")),
		validation.Field(&c.ChatsDatabaseID, validation.Required.Error("is required (set "+EnvChatsDatabaseID+")")),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.CoverURL, is.URL),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ContextConfig controls how conversations are filed.
type ContextConfig struct {
	DefaultProject     string `yaml:"default_project"`
	AutoCreateProjects bool   `yaml:"auto_create_projects"`
	SessionPrefix      string `yaml:"session_prefix"`
}

// Validate validates the context configuration.
func (c *ContextConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultProject, validation.Required),
		validation.Field(&c.SessionPrefix, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Store: StoreConfig{
			Backend: StoreNotion,
		},
		Notion: NotionConfig{
			CoverURL: DefaultChatCoverURL,
		},
		SQLite: SQLiteConfig{
			Path: "./contextbridge.db",
		},
		Context: ContextConfig{
			DefaultProject:     "General Inquiries",
			AutoCreateProjects: true,
			SessionPrefix:      "Claude",
		},
	}
}
