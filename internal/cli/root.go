// Package cli implements the docsmith command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xonecas/docsmith/internal/config"
	"github.com/xonecas/docsmith/internal/provider"
	"github.com/xonecas/docsmith/internal/store"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
	noColor    bool
}

// Execute builds the command tree with the built-in providers and runs it.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(provider.DefaultRegistry(), version).ExecuteContext(ctx)
}

// NewRootCommand returns the docsmith command tree. reg supplies the
// completion backends the generate command can use.
func NewRootCommand(reg *provider.Registry, version string) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "docsmith",
		Short: "Outline Python code and generate docstrings with a language model",
		Long: `docsmith parses Python files into functions and classes and asks a
configured language model to write docstrings for them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd.ErrOrStderr(), g.verbose)
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default ~/.config/docsmith/config.toml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newParseCommand(g),
		newScanCommand(g),
		newGenerateCommand(g, reg),
		newHistoryCommand(g),
		newUndoCommand(g),
		newWatchCommand(g),
		newProvidersCommand(g, reg),
		newLoginCommand(g),
		newVersionCommand(version),
	)
	return root
}

func setupLogging(w io.Writer, verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

func (g *globalOptions) loadConfig() (*config.Config, error) {
	return config.Load(g.configPath)
}

// credentialsDir is the directory holding the config file, or "" for the
// default data directory.
func (g *globalOptions) credentialsDir() string {
	if g.configPath == "" {
		return ""
	}
	return filepath.Dir(g.configPath)
}

func (g *globalOptions) loadCredentials() (*config.Credentials, error) {
	return config.LoadCredentials(g.credentialsDir())
}

// printer builds the output helper, taking the theme from the config when
// one can be loaded.
func (g *globalOptions) printer(cmd *cobra.Command) *printer {
	theme := config.UIConfig{}.SyntaxThemeOrDefault()
	if cfg, err := g.loadConfig(); err == nil {
		theme = cfg.UI.SyntaxThemeOrDefault()
	}
	return newPrinter(cmd.OutOrStdout(), g.noColor, theme)
}

// openHistory opens the generation log, or returns nil when it is disabled.
func openHistory(cfg *config.Config) (*store.History, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path, err := cfg.HistoryPathOrDefault()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	return store.Open(path, cfg.History.Retention())
}
