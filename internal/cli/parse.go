package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xonecas/docsmith/internal/highlight"
	"github.com/xonecas/docsmith/internal/treesitter"
)

const (
	formatOutline = "outline"
	formatJSON    = "json"
	formatYAML    = "yaml"
)

func newParseCommand(g *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse <file.py>",
		Short: "Print the functions and classes of a Python file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := treesitter.ParseFile(args[0])
			if err != nil {
				return err
			}
			p := g.printer(cmd)
			if err := printParse(p, args[0], res, format); err != nil {
				return err
			}
			if !res.Succeeded {
				return fmt.Errorf("%s: %s", args[0], res.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatOutline, "output format: outline, json or yaml")
	return cmd
}

func printParse(p *printer, path string, res treesitter.ParseResult, format string) error {
	switch format {
	case formatOutline:
		p.outline(path, res)
	case formatJSON:
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		p.line(p.code(string(data), highlight.LangJSON))
	case formatYAML:
		data, err := yaml.Marshal(res)
		if err != nil {
			return err
		}
		p.line(p.code(string(data), highlight.LangYAML))
	default:
		return fmt.Errorf("unknown format %q (want outline, json or yaml)", format)
	}
	return nil
}

func newScanCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "Outline every Python file below a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			abs, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			if info, err := os.Stat(abs); err != nil {
				return err
			} else if !info.IsDir() {
				return fmt.Errorf("%s: not a directory", root)
			}

			idx := treesitter.NewIndex(abs)
			if err := idx.Build(cmd.Context()); err != nil {
				return err
			}
			snap := idx.Snapshot()

			p := g.printer(cmd)
			if outline := treesitter.FormatOutline(snap); outline != "" {
				fmt.Fprint(p.w, outline)
			}

			var funcs, undocumented, failures int
			for _, res := range snap {
				if !res.Succeeded {
					failures++
					continue
				}
				funcs += len(res.Functions)
				undocumented += len(treesitter.Undocumented(res))
			}
			p.line(p.dim(fmt.Sprintf("%d files, %d functions, %d undocumented, %d with syntax errors",
				len(snap), funcs, undocumented, failures)))
			return nil
		},
	}
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docsmith version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "docsmith", version)
		},
	}
}
