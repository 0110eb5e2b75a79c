package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xonecas/docsmith/internal/provider"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const sampleConfig = `
default_provider = "local"
style = "NumPy"

[generation]
max_tokens = 200
temperature = 0.2
top_p = 0.95

[providers.local]
kind = "ollama"
endpoint = "http://localhost:11434"
model = "qwen2.5-coder"

[providers.cloud]
kind = "openai"
model = "gpt-4o-mini"
api_key_env = "DOCSMITH_TEST_OPENAI_KEY"

[history]
enabled = false
path = "/tmp/history.db"
retention_days = 30

[ui]
syntax_theme = "monokai"
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.DefaultProvider)
	assert.Equal(t, "numpy", cfg.Style)
	assert.Equal(t, provider.Params{MaxOutputTokens: 200, Temperature: 0.2, TopP: 0.95}, cfg.Generation.Params())
	assert.Equal(t, []string{"cloud", "local"}, cfg.ProviderNames())
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 30*24*time.Hour, cfg.History.Retention())
	assert.Equal(t, "monokai", cfg.UI.SyntaxThemeOrDefault())

	path, err := cfg.HistoryPathOrDefault()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/history.db", path)
}

func TestLoad_DefaultsFillMissingSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
default_provider = "vl"

[providers.vl]
kind = "vllm"
endpoint = "http://gpu:8000/v1"
model = "mistral"
`))
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.Style)
	assert.Equal(t, provider.DefaultParams(), cfg.Generation.Params())
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "vulcan", cfg.UI.SyntaxThemeOrDefault())
	assert.NotContains(t, cfg.Providers, "ollama", "file providers replace the built-in one")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_InvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "default_provider = \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_ValidationErrorsAreJoined(t *testing.T) {
	_, err := Load(writeConfig(t, `
default_provider = "missing"
style = "latex"

[generation]
max_tokens = 300
temperature = 3.5
top_p = 0.9

[providers.bad]
kind = "carrier-pigeon"
endpoint = "not a url"

[providers.compat]
kind = "openai-compat"
model = "m"
`))
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		`default_provider="missing" does not exist`,
		"style:",
		"Generation.Temperature",
		"Providers[bad].Kind",
		"Providers[bad].Endpoint",
		"Providers[bad].Model",
		"providers.compat.endpoint is required",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCSMITH_PROVIDER", "cloud")
	t.Setenv("DOCSMITH_STYLE", "sphinx")
	t.Setenv("DOCSMITH_HISTORY_PATH", "/var/tmp/h.db")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "cloud", cfg.DefaultProvider)
	assert.Equal(t, "sphinx", cfg.Style)
	assert.Equal(t, "/var/tmp/h.db", cfg.History.Path)
}

func TestProviderOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	creds := &Credentials{}
	creds.SetAPIKey("cloud", "from-file")

	kind, opts, err := cfg.ProviderOptions("", creds)
	require.NoError(t, err)
	assert.Equal(t, "ollama", kind)
	assert.Equal(t, "qwen2.5-coder", opts.Model)
	assert.Empty(t, opts.APIKey)

	_, opts, err = cfg.ProviderOptions("cloud", creds)
	require.NoError(t, err)
	assert.Equal(t, "from-file", opts.APIKey)

	t.Setenv("DOCSMITH_TEST_OPENAI_KEY", "from-env")
	_, opts, err = cfg.ProviderOptions("cloud", creds)
	require.NoError(t, err)
	assert.Equal(t, "from-env", opts.APIKey, "env var wins over credentials.json")

	_, _, err = cfg.ProviderOptions("nope", creds)
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestCredentialsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	empty, err := LoadCredentials(dir)
	require.NoError(t, err)
	assert.Empty(t, empty.GetAPIKey("cloud"))

	creds := &Credentials{}
	creds.SetAPIKey("cloud", "sk-test")
	require.NoError(t, SaveCredentials(dir, creds))

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadCredentials(dir)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", loaded.GetAPIKey("cloud"))

	var nilCreds *Credentials
	assert.Empty(t, nilCreds.GetAPIKey("cloud"))
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.DefaultProvider)
	assert.Equal(t, "ollama", cfg.Providers["ollama"].Kind)

	path, err := cfg.HistoryPathOrDefault()
	require.NoError(t, err)
	assert.Equal(t, "history.db", filepath.Base(path))
}
