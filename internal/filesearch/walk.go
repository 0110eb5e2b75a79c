package filesearch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// MaxFileSize is the largest source file Walk reports (1 MiB).
const MaxFileSize = 1 << 20

// File is a source file found by Walk.
type File struct {
	Path string // absolute
	Rel  string // slash-separated, relative to the root
	Size int64
}

// Walk calls fn for every Python source below root that is not ignored and
// not larger than MaxFileSize. Unreadable entries are skipped. Walk stops
// early when ctx is done or fn returns an error.
func Walk(ctx context.Context, root string, m *Matcher, fn func(File) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			log.Debug().Err(walkErr).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isPython(path) || m.Ignored(rel, false) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > MaxFileSize {
			return nil
		}
		return fn(File{Path: path, Rel: rel, Size: info.Size()})
	})
}

func isPython(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".py" || ext == ".pyi"
}
