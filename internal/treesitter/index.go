package treesitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/docsmith/internal/filesearch"
)

// parseCacheSize bounds how many parsed files the Index remembers by content
// identity (path, size, mtime).
const parseCacheSize = 4096

// Index holds a project-wide map of parse results, one per Python file.
type Index struct {
	mu     sync.RWMutex
	files  map[string]ParseResult // relPath -> result
	root   string
	parsed *lru.Cache[string, ParseResult]
}

// NewIndex creates an empty index rooted at dir.
func NewIndex(root string) *Index {
	cache, err := lru.New[string, ParseResult](parseCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size
	}
	return &Index{
		files:  make(map[string]ParseResult),
		root:   root,
		parsed: cache,
	}
}

// Root returns the directory the index was created for.
func (idx *Index) Root() string {
	return idx.root
}

// Build walks the project tree and parses every Python file, replacing the
// previous contents. Files with syntax errors are kept with their error.
func (idx *Index) Build(ctx context.Context) error {
	matcher, err := filesearch.NewMatcher(idx.root)
	if err != nil {
		log.Warn().Err(err).Str("root", idx.root).Msg("ignoring unreadable .gitignore")
		matcher, _ = filesearch.NewMatcher("")
	}

	files := make(map[string]ParseResult)
	err = filesearch.Walk(ctx, idx.root, matcher, func(f filesearch.File) error {
		res, err := idx.parse(f.Path)
		if err != nil {
			log.Debug().Err(err).Str("path", f.Rel).Msg("skipping file")
			return nil
		}
		files[f.Rel] = res
		return nil
	})
	if err != nil {
		return fmt.Errorf("index %s: %w", idx.root, err)
	}

	idx.mu.Lock()
	idx.files = files
	idx.mu.Unlock()

	log.Debug().Str("root", idx.root).Int("files", len(files)).Msg("index built")
	return nil
}

// UpdateFile re-parses a single file and updates the index. A file that no
// longer exists or is not Python is removed. It returns the relative path
// and the fresh result.
func (idx *Index) UpdateFile(absPath string) (string, ParseResult, bool) {
	rel, err := filepath.Rel(idx.root, absPath)
	if err != nil || !Supported(absPath) {
		return "", ParseResult{}, false
	}
	rel = filepath.ToSlash(rel)

	res, err := idx.parse(absPath)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err != nil {
		delete(idx.files, rel)
		return rel, ParseResult{}, false
	}
	idx.files[rel] = res
	return rel, res, true
}

// Files returns a snapshot of all indexed file paths (sorted is not guaranteed).
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	paths := make([]string, 0, len(idx.files))
	for p := range idx.files {
		paths = append(paths, p)
	}
	return paths
}

// Result returns the parse result for a given relative path.
func (idx *Index) Result(relPath string) (ParseResult, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	res, ok := idx.files[relPath]
	return res, ok
}

// Snapshot returns a copy of the full index map.
func (idx *Index) Snapshot() map[string]ParseResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]ParseResult, len(idx.files))
	for k, v := range idx.files {
		out[k] = v
	}
	return out
}

// parse parses path, reusing an earlier result when the file is unchanged.
func (idx *Index) parse(path string) (ParseResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ParseResult{}, err
	}
	if info.Size() > filesearch.MaxFileSize {
		return ParseResult{}, fmt.Errorf("%s: file too large (%d bytes)", path, info.Size())
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if res, ok := idx.parsed.Get(key); ok {
		return res, nil
	}

	res, err := ParseFile(path)
	if err != nil {
		return ParseResult{}, err
	}
	idx.parsed.Add(key, res)
	return res, nil
}
