package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `yaml:"app"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Datasets  map[string]DatasetConfig  `yaml:"datasets"`
	Guard     GuardConfig               `yaml:"guard"`
	Search    SearchConfig              `yaml:"search"`
	Router    RouterConfig              `yaml:"router"`
	Memory    MemoryConfig              `yaml:"memory"`
	Log       LogConfig                 `yaml:"log"`
}

type AppConfig struct {
	Name        string        `yaml:"name"`
	Prompt      string        `yaml:"prompt"`
	PromptsDir  string        `yaml:"prompts_dir"`
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

// DatasetConfig binds a dataset key to its SQLite file and the single table
// it may reference.
type DatasetConfig struct {
	Path        string `yaml:"path"`
	Table       string `yaml:"table"`
	Description string `yaml:"description"`
}

type GuardConfig struct {
	MaxInputLength    int      `yaml:"max_input_length"`
	DenyPatterns      []string `yaml:"deny_patterns"`
	SQLForbidden      []string `yaml:"sql_forbidden"`
	ScreenRouterInput *bool    `yaml:"screen_router_input"`
}

type SearchConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	MaxLength  int    `yaml:"max_length"`
	MaxResults int    `yaml:"max_results"`
	UserAgent  string `yaml:"user_agent"`
}

type RouterConfig struct {
	Mode         string `yaml:"mode"` // "llm" or "rules"
	HistoryTurns int    `yaml:"history_turns"`
	SQLTopK      int    `yaml:"sql_top_k"`
}

type MemoryConfig struct {
	Path string `yaml:"path"` // empty keeps history in memory
}

type LogConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	LLMLogPath    string `yaml:"llm_log_path"`
	LLMLogMaxSize int64  `yaml:"llm_log_max_size"`
}

// Load reads .env (if present), the YAML file at path (if non-empty and
// present), applies environment overrides and defaults, and validates.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("decode config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = DefaultAppName
	}
	if cfg.App.Prompt == "" {
		cfg.App.Prompt = DefaultPrompt
	}
	if cfg.App.TurnTimeout <= 0 {
		cfg.App.TurnTimeout = DefaultTurnTimeout
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers[DefaultProvider] = ProviderConfig{Model: DefaultModel, Enabled: true}
	}

	defaults := defaultDatasets()
	if cfg.Datasets == nil {
		cfg.Datasets = map[string]DatasetConfig{}
	}
	for _, key := range DatasetKeys {
		d := cfg.Datasets[key]
		def := defaults[key]
		if d.Path == "" {
			d.Path = def.Path
		}
		if d.Table == "" {
			d.Table = def.Table
		}
		if d.Description == "" {
			d.Description = def.Description
		}
		cfg.Datasets[key] = d
	}

	if cfg.Guard.MaxInputLength <= 0 {
		cfg.Guard.MaxInputLength = DefaultMaxInputLength
	}
	if cfg.Guard.ScreenRouterInput == nil {
		cfg.Guard.ScreenRouterInput = ptr(true)
	}

	if cfg.Search.Enabled == nil {
		cfg.Search.Enabled = ptr(true)
	}
	if cfg.Search.MaxLength <= 0 {
		cfg.Search.MaxLength = DefaultMaxSearchLength
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = DefaultSearchResults
	}

	if cfg.Router.Mode == "" {
		cfg.Router.Mode = DefaultRouterMode
	}
	if cfg.Router.HistoryTurns < 0 {
		cfg.Router.HistoryTurns = 0
	} else if cfg.Router.HistoryTurns == 0 {
		cfg.Router.HistoryTurns = DefaultHistoryTurns
	}
	if cfg.Router.SQLTopK <= 0 {
		cfg.Router.SQLTopK = DefaultSQLTopK
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// applyEnvOverrides honours the legacy .env names (base_url, github_api) and
// their BDASK_* equivalents, which win.
func applyEnvOverrides(cfg *Config) {
	name, p := cfg.GetDefaultProvider()
	if name == "" {
		name = DefaultProvider
		p = ProviderConfig{Model: DefaultModel, Enabled: true}
	}
	if v := firstEnv("BDASK_BASE_URL", "base_url"); v != "" {
		p.BaseURL = v
	}
	if v := firstEnv("BDASK_API_KEY", "github_api"); v != "" {
		p.APIKey = v
	}
	if v := firstEnv("BDASK_MODEL"); v != "" {
		p.Model = v
	}
	cfg.Providers[name] = p

	if v := firstEnv("BDASK_ROUTER_MODE"); v != "" {
		cfg.Router.Mode = v
	}
	if v := firstEnv("BDASK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := firstEnv("BDASK_MAX_INPUT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Guard.MaxInputLength = n
		}
	}
	if v := firstEnv("BDASK_MEMORY_PATH"); v != "" {
		cfg.Memory.Path = v
	}
}

// Validate checks that the allow-list is complete and well-formed.
func (c *Config) Validate() error {
	var errs []error
	for key, d := range c.Datasets {
		if !slices.Contains(DatasetKeys, key) {
			errs = append(errs, fmt.Errorf("unknown dataset %q", key))
			continue
		}
		if !validIdentifier(d.Table) {
			errs = append(errs, fmt.Errorf("dataset %q: invalid table name %q", key, d.Table))
		}
		if d.Path == "" {
			errs = append(errs, fmt.Errorf("dataset %q: path is required", key))
		}
	}
	switch c.Router.Mode {
	case "llm", "rules":
	default:
		errs = append(errs, fmt.Errorf("router mode must be llm or rules, got %q", c.Router.Mode))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// GetDefaultProvider returns the enabled provider with the lowest name, so
// the choice does not depend on map order.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	var names []string
	for name, p := range c.Providers {
		if p.Enabled {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", ProviderConfig{}
	}
	slices.Sort(names)
	return names[0], c.Providers[names[0]]
}

// Allowlist returns dataset key -> table name.
func (c *Config) Allowlist() map[string]string {
	out := make(map[string]string, len(c.Datasets))
	for key, d := range c.Datasets {
		out[key] = d.Table
	}
	return out
}

// SearchEnabled reports whether the web search tool should be registered.
func (c *Config) SearchEnabled() bool {
	return c.Search.Enabled == nil || *c.Search.Enabled
}

// ScreenRouterInput reports whether raw turns pass the router screen (length
// and injection phrases) before the router sees them.
func (c *Config) ScreenRouterInput() bool {
	return c.Guard.ScreenRouterInput == nil || *c.Guard.ScreenRouterInput
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func ptr[T any](v T) *T { return &v }
