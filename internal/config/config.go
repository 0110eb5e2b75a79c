// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/xonecas/docsmith/internal/docgen"
	"github.com/xonecas/docsmith/internal/provider"
)

// Config is the root configuration structure.
type Config struct {
	DefaultProvider string                    `toml:"default_provider"`
	Style           string                    `toml:"style"`
	Generation      GenerationConfig          `toml:"generation"`
	Providers       map[string]ProviderConfig `toml:"providers" validate:"required,min=1,dive"`
	History         HistoryConfig             `toml:"history"`
	UI              UIConfig                  `toml:"ui"`
}

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	MaxTokens   int     `toml:"max_tokens" validate:"gte=1,lte=32768"`
	Temperature float64 `toml:"temperature" validate:"gte=0,lte=2"`
	TopP        float64 `toml:"top_p" validate:"gt=0,lte=1"`
}

// Params converts the section into provider sampling parameters.
func (g GenerationConfig) Params() provider.Params {
	return provider.Params{
		MaxOutputTokens: g.MaxTokens,
		Temperature:     g.Temperature,
		TopP:            g.TopP,
	}
}

// ProviderConfig holds LLM provider settings.
type ProviderConfig struct {
	Kind      string `toml:"kind" validate:"required,oneof=ollama vllm openai-compat openai gemini zen"`
	Endpoint  string `toml:"endpoint" validate:"omitempty,url"`
	Model     string `toml:"model" validate:"required"`
	APIKeyEnv string `toml:"api_key_env"`
}

// HistoryConfig controls the generation log.
type HistoryConfig struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days" validate:"gte=0"` // 0 keeps everything
}

// Retention returns how long runs are kept, zero for forever.
func (h HistoryConfig) Retention() time.Duration {
	return time.Duration(h.RetentionDays) * 24 * time.Hour
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	// SyntaxTheme is the Chroma theme used for highlighted code blocks.
	// Defaults to "vulcan" if unset.
	SyntaxTheme string `toml:"syntax_theme"`
}

// SyntaxThemeOrDefault returns the configured syntax theme or "vulcan" if unset.
func (u UIConfig) SyntaxThemeOrDefault() string {
	if u.SyntaxTheme == "" {
		return "vulcan"
	}
	return u.SyntaxTheme
}

var validate = validator.New()

// Default returns the configuration used when no config file exists: a
// local Ollama server and the Google style.
func Default() *Config {
	defaults := provider.DefaultParams()
	return &Config{
		DefaultProvider: "ollama",
		Style:           docgen.StyleGoogle.String(),
		Generation: GenerationConfig{
			MaxTokens:   defaults.MaxOutputTokens,
			Temperature: defaults.Temperature,
			TopP:        defaults.TopP,
		},
		Providers: map[string]ProviderConfig{
			"ollama": {Kind: "ollama", Endpoint: "http://localhost:11434", Model: "llama3.2"},
		},
		History: HistoryConfig{Enabled: true},
	}
}

// Load reads configuration from a TOML file and applies environment variable
// overrides. An empty path means DefaultPath; a missing default file yields
// Default(), while an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	} else {
		// Providers from the file replace the built-in one.
		cfg.Providers = nil
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Style = strings.ToLower(cfg.Style)
	return cfg, nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, describeFieldError(fe))
		}
	}

	if c.DefaultProvider == "" {
		errs = append(errs, errors.New("default_provider is required"))
	} else if _, ok := c.Providers[c.DefaultProvider]; !ok {
		errs = append(errs, fmt.Errorf("default_provider=%q does not exist in providers", c.DefaultProvider))
	}

	if _, err := docgen.ParseStyle(c.Style); err != nil {
		errs = append(errs, fmt.Errorf("style: %w", err))
	}

	for name, p := range c.Providers {
		if p.Endpoint == "" && (p.Kind == "vllm" || p.Kind == "openai-compat") {
			errs = append(errs, fmt.Errorf("providers.%s.endpoint is required for kind %q", name, p.Kind))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// describeFieldError turns a validator failure into a config-path message.
func describeFieldError(fe validator.FieldError) error {
	ns := fe.Namespace()
	ns = strings.TrimPrefix(ns, "Config.")
	if fe.Param() != "" {
		return fmt.Errorf("%s=%v fails %s=%s", ns, fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%s=%v fails %s", ns, fe.Value(), fe.Tag())
}

// ProviderNames returns the configured provider names, sorted.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderOptions resolves the named provider (the default when name is
// empty) into its kind and construction options. The API key comes from the
// environment variable named by api_key_env, then from creds.
func (c *Config) ProviderOptions(name string, creds *Credentials) (string, provider.Options, error) {
	if name == "" {
		name = c.DefaultProvider
	}
	p, ok := c.Providers[name]
	if !ok {
		return "", provider.Options{}, fmt.Errorf("%w: %q", provider.ErrProviderNotFound, name)
	}

	key := ""
	if p.APIKeyEnv != "" {
		key = os.Getenv(p.APIKeyEnv)
	}
	if key == "" {
		key = creds.GetAPIKey(name)
	}
	return p.Kind, provider.Options{Endpoint: p.Endpoint, APIKey: key, Model: p.Model}, nil
}

// HistoryPathOrDefault returns the configured history database path or
// history.db in the data directory.
func (c *Config) HistoryPathOrDefault() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	for _, setter := range []struct {
		env   string
		apply func(string)
	}{
		{"DOCSMITH_PROVIDER", func(v string) { cfg.DefaultProvider = v }},
		{"DOCSMITH_STYLE", func(v string) { cfg.Style = v }},
		{"DOCSMITH_HISTORY_PATH", func(v string) { cfg.History.Path = v }},
	} {
		if v := os.Getenv(setter.env); v != "" {
			setter.apply(v)
		}
	}
}

// DataDir returns the path to the docsmith data directory (~/.config/docsmith).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docsmith"), nil
}

// DefaultPath returns ~/.config/docsmith/config.toml.
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", err
	}
	return dir, nil
}
