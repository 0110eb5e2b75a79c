package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xonecas/docsmith/internal/config"
	"github.com/xonecas/docsmith/internal/provider"
)

func newProvidersCommand(g *globalOptions, reg *provider.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and the supported kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			p := g.printer(cmd)
			p.heading("configured")
			for _, name := range cfg.ProviderNames() {
				pc := cfg.Providers[name]
				mark := " "
				if name == cfg.DefaultProvider {
					mark = "*"
				}
				line := fmt.Sprintf(" %s %s  %s  %s", mark, name, pc.Kind, pc.Model)
				if pc.Endpoint != "" {
					line += "  " + p.dim(pc.Endpoint)
				}
				p.line(line)
			}
			p.heading("kinds")
			p.line("   " + strings.Join(reg.List(), ", "))
			return nil
		},
	}
}

func newLoginCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <provider>",
		Short: "Store an API key for a configured provider",
		Long: `Login reads an API key from stdin and stores it in credentials.json
next to the config file. Keys named by api_key_env take precedence.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if _, ok := cfg.Providers[name]; !ok {
				return fmt.Errorf("%w: %q", provider.ErrProviderNotFound, name)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "API key for %s: ", name)
			key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			key = strings.TrimSpace(key)
			if key == "" {
				if err != nil {
					return fmt.Errorf("read key: %w", err)
				}
				return errors.New("empty API key")
			}

			dir := g.credentialsDir()
			if dir == "" {
				if dir, err = config.EnsureDataDir(); err != nil {
					return err
				}
			}
			creds, err := config.LoadCredentials(dir)
			if err != nil {
				return err
			}
			creds.SetAPIKey(name, key)
			if err := config.SaveCredentials(dir, creds); err != nil {
				return err
			}
			p := g.printer(cmd)
			p.line(p.dim("saved key for " + name))
			return nil
		},
	}
}
