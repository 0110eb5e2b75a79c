// Package store provides a SQLite-backed log of generated docstrings.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	root     TEXT NOT NULL,
	command  TEXT NOT NULL,
	created  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS generations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL,
	file        TEXT NOT NULL,
	function    TEXT NOT NULL,
	line        INTEGER NOT NULL,
	style       TEXT NOT NULL,
	provider    TEXT NOT NULL,
	model       TEXT NOT NULL,
	docstring   TEXT NOT NULL,
	elapsed_ms  INTEGER NOT NULL DEFAULT 0,
	created     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS file_snapshots (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       INTEGER NOT NULL,
	file_path    TEXT NOT NULL,
	old_content  BLOB NOT NULL,
	created      INTEGER NOT NULL,
	UNIQUE (run_id, file_path)
);

CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`

// Generation is one docstring produced for one function.
type Generation struct {
	ID        int64
	RunID     int64
	File      string
	Function  string
	Line      int
	Style     string
	Provider  string
	Model     string
	Docstring string
	Elapsed   time.Duration
	Created   time.Time
}

// History is an append-only log of generations. It is never read back to
// answer a generation request.
type History struct {
	mu        sync.Mutex
	db        *sql.DB
	retention time.Duration
}

// Open creates or opens a history database at the given path. Runs older
// than retention are removed on open; zero keeps everything.
func Open(dbPath string, retention time.Duration) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	// Databases from before elapsed time was tracked lack the column.
	if !hasColumn(db, "generations", "elapsed_ms") {
		if _, err := db.Exec("ALTER TABLE generations ADD COLUMN elapsed_ms INTEGER NOT NULL DEFAULT 0"); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate generations: %w", err)
		}
	}

	h := &History{db: db, retention: retention}
	h.purgeStale()
	return h, nil
}

// Close closes the database.
func (h *History) Close() error {
	if h == nil {
		return nil
	}
	return h.db.Close()
}

// Recent returns up to limit generations, newest first.
// Safe to call on a nil receiver (returns nothing).
func (h *History) Recent(limit int) ([]Generation, error) {
	if h == nil {
		return nil, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Query(
		`SELECT id, run_id, file, function, line, style, provider, model, docstring, elapsed_ms, created
		 FROM generations ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGenerations(rows)
}

func scanGenerations(rows *sql.Rows) ([]Generation, error) {
	var out []Generation
	for rows.Next() {
		var g Generation
		var elapsed, created int64
		if err := rows.Scan(&g.ID, &g.RunID, &g.File, &g.Function, &g.Line, &g.Style,
			&g.Provider, &g.Model, &g.Docstring, &elapsed, &created); err != nil {
			return nil, err
		}
		g.Elapsed = time.Duration(elapsed) * time.Millisecond
		g.Created = time.Unix(created, 0)
		out = append(out, g)
	}
	return out, rows.Err()
}

// hasColumn checks if a table has a specific column.
func hasColumn(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table)) //nolint:gosec // table name is hardcoded by caller
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// purgeStale removes runs, and their generations, older than the retention.
func (h *History) purgeStale() {
	if h.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-h.retention).Unix()
	for _, table := range []string{"generations", "file_snapshots"} {
		if _, err := h.db.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE run_id IN (SELECT id FROM runs WHERE created <= ?)", table), //nolint:gosec // table name is hardcoded
			cutoff,
		); err != nil {
			log.Warn().Err(err).Str("table", table).Msg("failed to purge old history")
			return
		}
	}
	res, err := h.db.Exec("DELETE FROM runs WHERE created <= ?", cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("failed to purge old history")
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info().Int64("deleted", n).Msg("purged old history runs")
	}
}
