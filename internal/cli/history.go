package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xonecas/docsmith/internal/store"
)

var errHistoryDisabled = errors.New("history is disabled in the config")

func requireHistory(g *globalOptions) (*store.History, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	h, err := openHistory(cfg)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, errHistoryDisabled
	}
	return h, nil
}

func newHistoryCommand(g *globalOptions) *cobra.Command {
	var limit int
	var runID int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently generated docstrings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := requireHistory(g)
			if err != nil {
				return err
			}
			defer h.Close()

			var gens []store.Generation
			if runID > 0 {
				gens, err = h.RunGenerations(runID)
			} else {
				gens, err = h.Recent(limit)
			}
			if err != nil {
				return err
			}

			p := g.printer(cmd)
			if len(gens) == 0 {
				p.line(p.dim("no generations recorded"))
				return nil
			}
			for _, gen := range gens {
				p.heading(fmt.Sprintf("%s:%d %s", gen.File, gen.Line, gen.Function))
				p.line("  " + p.dim(fmt.Sprintf("run %d  %s  %s/%s  %s  %s",
					gen.RunID, gen.Created.Local().Format("2006-01-02 15:04"),
					gen.Provider, gen.Model, gen.Style, gen.Elapsed.Round(1e6))))
				p.block(strings.TrimSpace(gen.Docstring), "", "    ")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of generations to show")
	cmd.Flags().Int64Var(&runID, "run", 0, "show the generations of one run")
	return cmd
}

func newUndoCommand(g *globalOptions) *cobra.Command {
	var runID int64

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Restore the files rewritten by a generate --write run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := requireHistory(g)
			if err != nil {
				return err
			}
			defer h.Close()

			if runID == 0 {
				if runID, err = h.LastRewriteRun(); err != nil {
					return err
				}
			}
			paths, err := h.Undo(runID)
			if err != nil {
				return err
			}

			p := g.printer(cmd)
			for _, path := range paths {
				p.line("restored " + path)
			}
			p.line(p.dim(fmt.Sprintf("run %d undone", runID)))
			return nil
		},
	}
	cmd.Flags().Int64Var(&runID, "run", 0, "run to undo (default the latest rewrite)")
	return cmd
}
