package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xonecas/docsmith/internal/app"
	"github.com/xonecas/docsmith/internal/docgen"
	"github.com/xonecas/docsmith/internal/highlight"
	"github.com/xonecas/docsmith/internal/provider"
)

type generateOptions struct {
	funcs    []string
	all      bool
	style    string
	write    bool
	diff     bool
	provider string
}

func newGenerateCommand(g *globalOptions, reg *provider.Registry) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <file.py>...",
		Short: "Generate docstrings for undocumented functions",
		Long: `Generate asks the configured model for a docstring for every function
without one. Results are printed; --diff shows the rewrite as a unified diff
and --write applies it in place.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, reg, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.funcs, "func", nil, "only these functions (repeatable)")
	f.BoolVar(&opts.all, "all", false, "also regenerate functions that have a docstring")
	f.StringVarP(&opts.style, "style", "s", "", "docstring style: google, numpy or sphinx")
	f.BoolVarP(&opts.write, "write", "w", false, "write docstrings into the files")
	f.BoolVarP(&opts.diff, "diff", "d", false, "print the rewrite as a unified diff")
	f.StringVarP(&opts.provider, "provider", "p", "", "configured provider to use (default from config)")
	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalOptions, reg *provider.Registry, opts *generateOptions, files []string) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	creds, err := g.loadCredentials()
	if err != nil {
		return err
	}

	var style docgen.Style
	if opts.style != "" {
		if style, err = docgen.ParseStyle(opts.style); err != nil {
			return err
		}
	}

	name := opts.provider
	if name == "" {
		name = cfg.DefaultProvider
	}
	kind, popts, err := cfg.ProviderOptions(name, creds)
	if err != nil {
		return err
	}
	completer, err := reg.Create(kind, popts)
	if err != nil {
		return fmt.Errorf("provider %s: %w", name, err)
	}
	defer completer.Close()

	synth := docgen.New(completer).WithParams(cfg.Generation.Params())
	if err := synth.SetStyle(cfg.Style); err != nil {
		return err
	}

	history, err := openHistory(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("history disabled")
	}
	defer history.Close()

	svc := app.New(synth, history, app.Meta{Provider: name, Model: popts.Model})
	wd, _ := os.Getwd()
	svc.StartRun(wd, "generate "+strings.Join(files, " "))

	log.Debug().
		Str("provider", name).
		Str("kind", kind).
		Str("model", popts.Model).
		Str("style", synth.Style().String()).
		Msg("generating")

	p := g.printer(cmd)
	appOpts := app.Options{Style: style, Only: opts.funcs, All: opts.all}

	var errs []error
	for _, path := range files {
		res, err := svc.DocumentFile(ctx, path, appOpts)
		if res != nil {
			printFileResult(p, res, opts.diff)
		}
		if err != nil {
			// A cancelled run or a backend failure applies to every file.
			if ctx.Err() != nil || (!errors.Is(err, app.ErrSyntax) && !errors.Is(err, app.ErrUnknownFunction)) {
				return err
			}
			errs = append(errs, err)
			continue
		}
		if opts.write && res.Changed() {
			if err := svc.WriteFile(res); err != nil {
				errs = append(errs, err)
				continue
			}
			p.line(p.dim("wrote " + res.Path))
		}
	}

	if opts.write && svc.RunID() != 0 {
		p.line(p.dim(fmt.Sprintf("run %d (docsmith undo --run %d reverts it)", svc.RunID(), svc.RunID())))
	}
	return errors.Join(errs...)
}

func printFileResult(p *printer, res *app.FileResult, diff bool) {
	if diff {
		if d := res.Diff(); d != "" {
			p.line(p.code(strings.TrimRight(d, "\n"), highlight.LangDiff))
		}
		return
	}

	p.heading(filepath.Clean(res.Path))
	for _, fr := range res.Functions {
		fn := fr.Function
		header := fmt.Sprintf("  %d  %s", fn.Line, fn.Name)
		if fr.Skipped != "" {
			header += "  " + p.dim("("+fr.Skipped+")")
		}
		p.line(header + "  " + p.dim(fr.Elapsed.Round(1e6).String()))
		if doc := strings.TrimSpace(fr.Docstring); doc != "" {
			p.block(doc, "", "      ")
		}
	}
}
