package store

import (
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNothingToUndo is returned when no run has rewritten any file.
var ErrNothingToUndo = errors.New("no rewritten files to restore")

// RecordOriginal stores the content of a file before a run rewrites it.
// Only the first snapshot per file per run is kept; later writes in the same
// run are no-ops since the original is already saved.
func (h *History) RecordOriginal(runID int64, filePath string, oldContent []byte) error {
	if h == nil || runID == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if oldContent == nil {
		oldContent = []byte{}
	}
	_, err := h.db.Exec(
		`INSERT OR IGNORE INTO file_snapshots (run_id, file_path, old_content, created)
		 VALUES (?, ?, ?, ?)`,
		runID, filePath, oldContent, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("failed to record file snapshot")
	}
	return err
}

// LastRewriteRun returns the newest run that rewrote at least one file.
func (h *History) LastRewriteRun() (int64, error) {
	if h == nil {
		return 0, ErrNothingToUndo
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var runID int64
	err := h.db.QueryRow("SELECT run_id FROM file_snapshots ORDER BY id DESC LIMIT 1").Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNothingToUndo
	}
	return runID, err
}

// Undo restores every file a run rewrote to its original content and drops
// the snapshots. Returns the affected paths.
func (h *History) Undo(runID int64) ([]string, error) {
	if h == nil {
		return nil, ErrNothingToUndo
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	rows, err := h.db.Query(
		`SELECT file_path, old_content FROM file_snapshots
		 WHERE run_id = ? ORDER BY id DESC`, runID,
	)
	if err != nil {
		return nil, err
	}

	var affected []string
	var errs []error
	for rows.Next() {
		var filePath string
		var oldContent []byte
		if err := rows.Scan(&filePath, &oldContent); err != nil {
			log.Warn().Err(err).Msg("failed to scan snapshot row")
			continue
		}
		mode := os.FileMode(0o644)
		if info, err := os.Stat(filePath); err == nil {
			mode = info.Mode().Perm()
		}
		if err := os.WriteFile(filePath, oldContent, mode); err != nil {
			log.Warn().Err(err).Str("file", filePath).Msg("undo: failed to restore file")
			errs = append(errs, err)
			continue
		}
		affected = append(affected, filePath)
	}
	if err := rows.Err(); err != nil {
		errs = append(errs, err)
	}
	rows.Close()

	if len(affected) == 0 && len(errs) == 0 {
		return nil, ErrNothingToUndo
	}
	if len(errs) == 0 {
		if _, err := h.db.Exec("DELETE FROM file_snapshots WHERE run_id = ?", runID); err != nil {
			errs = append(errs, err)
		}
	}
	return affected, errors.Join(errs...)
}
