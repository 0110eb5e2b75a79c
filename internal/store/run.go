package store

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Run groups the generations of one command invocation.
type Run struct {
	ID      int64
	Root    string
	Command string
	Created time.Time
}

// StartRun inserts a new run and returns its ID. Returns 0 on a nil receiver.
func (h *History) StartRun(root, command string) (int64, error) {
	if h == nil {
		return 0, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.db.Exec(
		"INSERT INTO runs (root, command, created) VALUES (?, ?, ?)",
		root, command, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("root", root).Msg("failed to start run")
		return 0, err
	}
	return res.LastInsertId()
}

// Record appends a generation to its run and returns the row ID.
// No-op on nil receiver.
func (h *History) Record(g Generation) (int64, error) {
	if h == nil {
		return 0, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	created := g.Created
	if created.IsZero() {
		created = time.Now()
	}
	res, err := h.db.Exec(
		`INSERT INTO generations (run_id, file, function, line, style, provider, model, docstring, elapsed_ms, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.RunID, g.File, g.Function, g.Line, g.Style, g.Provider, g.Model, g.Docstring,
		g.Elapsed.Milliseconds(), created.Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("function", g.Function).Msg("failed to record generation")
		return 0, err
	}
	return res.LastInsertId()
}

// RunGenerations returns all generations of a run, ordered by ID.
func (h *History) RunGenerations(runID int64) ([]Generation, error) {
	if h == nil {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Query(
		`SELECT id, run_id, file, function, line, style, provider, model, docstring, elapsed_ms, created
		 FROM generations WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGenerations(rows)
}

// Runs returns up to limit runs, newest first.
func (h *History) Runs(limit int) ([]Run, error) {
	if h == nil {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Query("SELECT id, root, command, created FROM runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.ID, &r.Root, &r.Command, &created); err != nil {
			return nil, err
		}
		r.Created = time.Unix(created, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
