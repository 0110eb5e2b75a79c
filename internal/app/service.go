// Package app wires the extractor, the docstring synthesizer and the history
// log into file-level operations used by the CLI.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xonecas/docsmith/internal/docgen"
	"github.com/xonecas/docsmith/internal/rewrite"
	"github.com/xonecas/docsmith/internal/store"
	"github.com/xonecas/docsmith/internal/treesitter"
)

var (
	// ErrSyntax is returned when a file does not parse.
	ErrSyntax = errors.New("syntax error")

	// ErrUnknownFunction is returned when a requested function is not in the file.
	ErrUnknownFunction = errors.New("unknown function")
)

// Options selects which functions of a file get a docstring.
type Options struct {
	Style docgen.Style // empty means the synthesizer default
	Only  []string     // function names; overrides All
	All   bool         // include functions that already have a docstring
}

// FunctionResult is the outcome for one function.
type FunctionResult struct {
	Function  treesitter.FunctionRecord
	Docstring string
	Elapsed   time.Duration
	// Skipped explains why the docstring was not placed in After.
	Skipped string
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path      string
	Parse     treesitter.ParseResult
	Functions []FunctionResult
	Before    []byte
	After     []byte
	// Edits produced After from Before; WriteFile replays them when the
	// file changed in the meantime.
	Edits []rewrite.Edit
}

// Changed reports whether After differs from Before.
func (r *FileResult) Changed() bool {
	return string(r.Before) != string(r.After)
}

// Diff renders the rewrite as a unified diff.
func (r *FileResult) Diff() string {
	return rewrite.Diff(r.Path, r.Before, r.After)
}

// Meta names the backend generations are attributed to in the history.
type Meta struct {
	Provider string
	Model    string
}

// Service documents Python files.
type Service struct {
	extractor *treesitter.Extractor
	synth     *docgen.Synthesizer
	history   *store.History
	meta      Meta
	runID     int64
}

// New creates a Service. history may be nil.
func New(synth *docgen.Synthesizer, history *store.History, meta Meta) *Service {
	return &Service{
		extractor: treesitter.NewExtractor(),
		synth:     synth,
		history:   history,
		meta:      meta,
	}
}

// Extractor returns the extractor holding the structure of the file most
// recently passed to DocumentFile.
func (s *Service) Extractor() *treesitter.Extractor {
	return s.extractor
}

// StartRun opens a history run that subsequent generations are grouped in.
func (s *Service) StartRun(root, command string) {
	id, err := s.history.StartRun(root, command)
	if err != nil {
		log.Warn().Err(err).Msg("history unavailable for this run")
		return
	}
	s.runID = id
}

// RunID returns the current history run, 0 when none.
func (s *Service) RunID() int64 {
	return s.runID
}

// DocumentFile generates docstrings for the selected functions of path, one
// at a time, and prepares the rewritten source. A completion failure aborts
// the file; the results gathered so far are returned along with the error.
func (s *Service) DocumentFile(ctx context.Context, path string, opts Options) (*FileResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	res := &FileResult{
		Path:   path,
		Parse:  s.extractor.Parse(src),
		Before: src,
		After:  src,
	}
	if !res.Parse.Succeeded {
		return res, fmt.Errorf("%s: %w: %s", path, ErrSyntax, res.Parse.Error)
	}

	targets, err := selectFunctions(res.Parse, opts)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	style := opts.Style
	if style == "" {
		style = s.synth.Style()
	}

	var edits []rewrite.Edit
	for _, fn := range targets {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		start := time.Now()
		doc, err := s.synth.GenerateDocstring(ctx, fn.Source, fn.Name, style)
		if err != nil {
			return res, fmt.Errorf("%s:%d %s: %w", path, fn.Line, fn.Name, err)
		}
		fr := FunctionResult{Function: fn, Docstring: doc, Elapsed: time.Since(start)}

		log.Debug().
			Str("file", path).
			Str("function", fn.Name).
			Dur("elapsed", fr.Elapsed).
			Msg("docstring generated")

		s.record(path, style, fr)

		switch {
		case fn.HasDocstring():
			fr.Skipped = "already documented"
		case rewrite.Normalize(doc) == "":
			fr.Skipped = "empty completion"
		default:
			anchor, err := rewrite.AnchorAt(src, fn.Line)
			if err != nil {
				return res, fmt.Errorf("%s: %w", path, err)
			}
			edits = append(edits, rewrite.Edit{Function: fn, Docstring: doc, Anchor: anchor})
		}
		res.Functions = append(res.Functions, fr)
	}

	if len(edits) > 0 {
		after, err := rewrite.Apply(src, edits)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		res.After = after
		res.Edits = edits
	}
	return res, nil
}

// WriteFile saves res.After over res.Path. When the file no longer holds
// res.Before the edits are replayed onto its current content, which fails
// with a *rewrite.StaleError if an anchored def line moved or changed. The
// overwritten content is kept in the history for undo.
func (s *Service) WriteFile(res *FileResult) error {
	if !res.Changed() {
		return nil
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		return err
	}
	current, err := os.ReadFile(res.Path)
	if err != nil {
		return err
	}

	after := res.After
	if !bytes.Equal(current, res.Before) {
		after, err = rewrite.Apply(current, res.Edits)
		if err != nil {
			return fmt.Errorf("%s: file changed during generation: %w", res.Path, err)
		}
		log.Debug().Str("file", res.Path).Int("edits", len(res.Edits)).Msg("edits replayed onto changed file")
	}

	if err := s.history.RecordOriginal(s.runID, res.Path, current); err != nil {
		log.Warn().Err(err).Str("file", res.Path).Msg("undo snapshot not saved")
	}
	if err := os.WriteFile(res.Path, after, info.Mode().Perm()); err != nil {
		return err
	}
	res.Before, res.After = current, after
	return nil
}

func (s *Service) record(path string, style docgen.Style, fr FunctionResult) {
	if s.history == nil {
		return
	}
	_, err := s.history.Record(store.Generation{
		RunID:     s.runID,
		File:      path,
		Function:  fr.Function.Name,
		Line:      fr.Function.Line,
		Style:     style.String(),
		Provider:  s.meta.Provider,
		Model:     s.meta.Model,
		Docstring: fr.Docstring,
		Elapsed:   fr.Elapsed,
	})
	if err != nil {
		log.Warn().Err(err).Str("function", fr.Function.Name).Msg("generation not recorded")
	}
}

// selectFunctions picks the functions to document, in traversal order.
func selectFunctions(res treesitter.ParseResult, opts Options) ([]treesitter.FunctionRecord, error) {
	if len(opts.Only) > 0 {
		var missing []error
		for _, name := range opts.Only {
			if len(treesitter.Lookup(res, name)) == 0 {
				missing = append(missing, fmt.Errorf("%w: %s", ErrUnknownFunction, name))
			}
		}
		if len(missing) > 0 {
			return nil, errors.Join(missing...)
		}
		var out []treesitter.FunctionRecord
		for _, fn := range res.Functions {
			if slices.Contains(opts.Only, fn.Name) {
				out = append(out, fn)
			}
		}
		return out, nil
	}
	if opts.All {
		return res.Functions, nil
	}
	return treesitter.Undocumented(res), nil
}
