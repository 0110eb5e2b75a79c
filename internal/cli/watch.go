package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xonecas/docsmith/internal/filesearch"
	"github.com/xonecas/docsmith/internal/treesitter"
)

const defaultDebounce = 250 * time.Millisecond

func newWatchCommand(g *globalOptions) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Re-outline Python files as they change",
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

			idx := treesitter.NewIndex(abs)
			if err := idx.Build(cmd.Context()); err != nil {
				return err
			}
			matcher, err := filesearch.NewMatcher(abs)
			if err != nil {
				return err
			}

			p := g.printer(cmd)
			p.line(p.dim(fmt.Sprintf("watching %s (%d Python files)", abs, len(idx.Files()))))

			return watchTree(cmd.Context(), abs, debounce, matcher, func(changed []string) {
				for _, path := range changed {
					printChange(p, idx, path)
				}
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before re-parsing")
	return cmd
}

func printChange(p *printer, idx *treesitter.Index, path string) {
	if !treesitter.Supported(path) {
		return
	}
	rel, res, ok := idx.UpdateFile(path)
	if !ok {
		if rel != "" {
			p.line(p.dim(rel + ": removed"))
		}
		return
	}
	p.heading(rel)
	body := treesitter.FormatFile(res)
	if body == "" {
		p.line("  " + p.dim("(no functions or classes)"))
		return
	}
	fmt.Fprint(p.w, body)
}

// watchTree calls onChange with the sorted paths that changed below root,
// once each burst of events has been quiet for debounce. It returns when ctx
// is done.
func watchTree(ctx context.Context, root string, debounce time.Duration, m *filesearch.Matcher, onChange func([]string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	root = filepath.Clean(root)
	if err := addWatchRecursive(watcher, root, root, m); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if ignoredPath(root, path, false, m) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if err := addWatchRecursive(watcher, root, path, m); err != nil {
						log.Debug().Err(err).Str("dir", path).Msg("watch failed")
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[path] = true
			timer.Reset(debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = map[string]bool{}
			onChange(changed)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// addWatchRecursive watches dir and every directory below it that m does
// not ignore. Paths are matched relative to root.
func addWatchRecursive(w *fsnotify.Watcher, root, dir string, m *filesearch.Matcher) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && ignoredPath(root, path, true, m) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func ignoredPath(root, path string, isDir bool, m *filesearch.Matcher) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".swp") || strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return m.Ignored(filepath.ToSlash(rel), isDir)
}
