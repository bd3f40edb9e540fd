package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"base_url", "github_api", "BDASK_BASE_URL", "BDASK_API_KEY", "BDASK_MODEL",
		"BDASK_ROUTER_MODE", "BDASK_LOG_LEVEL", "BDASK_MAX_INPUT_LENGTH", "BDASK_MEMORY_PATH",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPrompt, cfg.App.Prompt)
	assert.Equal(t, DefaultTurnTimeout, cfg.App.TurnTimeout)
	assert.Equal(t, DefaultMaxInputLength, cfg.Guard.MaxInputLength)
	assert.True(t, cfg.ScreenRouterInput())
	assert.True(t, cfg.SearchEnabled())
	assert.Equal(t, "llm", cfg.Router.Mode)

	assert.Equal(t, map[string]string{
		"institutions": "institutions",
		"hospitals":    "hospitals",
		"restaurants":  "restaurants",
	}, cfg.Allowlist())

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, DefaultProvider, name)
	assert.Equal(t, DefaultModel, p.Model)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("base_url", "https://models.example/inference")
	t.Setenv("github_api", "ghp_secret")
	t.Setenv("BDASK_ROUTER_MODE", "rules")

	path := writeConfig(t, `
app:
  turn_timeout: 30s
providers:
  openrouter:
    model: some/model
    enabled: true
datasets:
  hospitals:
    path: data/h.db
    table: hospital_list
guard:
  max_input_length: 120
  screen_router_input: false
search:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.App.TurnTimeout)
	assert.Equal(t, 120, cfg.Guard.MaxInputLength)
	assert.False(t, cfg.ScreenRouterInput())
	assert.False(t, cfg.SearchEnabled())
	assert.Equal(t, "rules", cfg.Router.Mode)
	assert.Equal(t, "hospital_list", cfg.Datasets["hospitals"].Table)
	assert.Equal(t, "data/h.db", cfg.Datasets["hospitals"].Path)
	assert.Equal(t, "restaurants", cfg.Datasets["restaurants"].Table)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openrouter", name)
	assert.Equal(t, "some/model", p.Model)
	assert.Equal(t, "https://models.example/inference", p.BaseURL)
	assert.Equal(t, "ghp_secret", p.APIKey)
}

func TestLoad_PrefixedEnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("github_api", "from-dotenv-name")
	t.Setenv("BDASK_API_KEY", "from-prefixed")

	cfg, err := Load("")
	require.NoError(t, err)

	_, p := cfg.GetDefaultProvider()
	assert.Equal(t, "from-prefixed", p.APIKey)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown dataset", "datasets:\n  pharmacies:\n    path: p.db\n    table: pharmacies\n"},
		{"bad table", "datasets:\n  hospitals:\n    table: \"h; drop\"\n"},
		{"bad router", "router:\n  mode: magic\n"},
		{"bad yaml", "app: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestGetDefaultProvider_Deterministic(t *testing.T) {
	cfg := &Config{Providers: map[string]ProviderConfig{
		"openrouter": {Enabled: true},
		"anthropic":  {Enabled: true},
		"ollama":     {Enabled: false},
	}}
	name, _ := cfg.GetDefaultProvider()
	assert.Equal(t, "anthropic", name)

	cfg.Providers = map[string]ProviderConfig{"ollama": {}}
	name, _ = cfg.GetDefaultProvider()
	assert.Empty(t, name)
}
