package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RecordFile inserts one exported attachment for a run and returns its row ID.
// Recording the same (workspace, attachment) ordinal pair twice for a run is
// an error.
func RecordFile(ctx context.Context, ex execer, f model.ExportedFile) (int, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	res, err := ex.ExecContext(ctx,
		`INSERT INTO exported_files (run_id, workspace_ordinal, workspace_name, attachment_ordinal,
		   object_id, name, dir, meta_path, data_path, extension, declared_size, written_bytes, digest, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID, f.WorkspaceOrdinal, f.WorkspaceName, f.AttachmentOrdinal,
		f.ObjectID, f.Name, f.Dir, f.MetaPath, f.DataPath, f.Extension,
		f.DeclaredSize, f.WrittenBytes, f.Digest, f.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting exported file %q: %w", f.DataPath, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return int(id), nil
}

// ListRunFiles returns every file recorded for a run in export order.
func ListRunFiles(db *sql.DB, runID string) ([]model.ExportedFile, error) {
	rows, err := db.Query(
		`SELECT id, run_id, workspace_ordinal, workspace_name, attachment_ordinal, object_id, name,
		        dir, meta_path, data_path, extension, declared_size, written_bytes, digest, created_at
		 FROM exported_files
		 WHERE run_id = ?
		 ORDER BY workspace_ordinal, attachment_ordinal`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing run files: %w", err)
	}
	defer rows.Close()

	var files []model.ExportedFile
	for rows.Next() {
		var f model.ExportedFile
		var createdAt string
		if err := rows.Scan(
			&f.ID, &f.RunID, &f.WorkspaceOrdinal, &f.WorkspaceName, &f.AttachmentOrdinal, &f.ObjectID, &f.Name,
			&f.Dir, &f.MetaPath, &f.DataPath, &f.Extension, &f.DeclaredSize, &f.WrittenBytes, &f.Digest, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning exported file: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		f.CreatedAt = t
		files = append(files, f)
	}
	return files, rows.Err()
}

// ExtensionCounts returns the number of files per lowercase extension for a
// run, in the same shape as export.Stats.Extensions.
func ExtensionCounts(db *sql.DB, runID string) (map[string]int, error) {
	rows, err := db.Query(
		`SELECT extension, COUNT(*) FROM exported_files WHERE run_id = ? GROUP BY extension`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting extensions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ext string
		var n int
		if err := rows.Scan(&ext, &n); err != nil {
			return nil, fmt.Errorf("scanning extension count: %w", err)
		}
		counts[strings.ToLower(ext)] += n
	}
	return counts, rows.Err()
}

// Recorder records the files of one run as the export writes them.
type Recorder struct {
	db    *sql.DB
	runID string
}

var _ export.Recorder = (*Recorder)(nil)

// NewRecorder returns a Recorder that tags every file with runID.
func NewRecorder(db *sql.DB, runID string) *Recorder {
	return &Recorder{db: db, runID: runID}
}

// RecordFile implements export.Recorder.
func (r *Recorder) RecordFile(ctx context.Context, f model.ExportedFile) error {
	f.RunID = r.runID
	_, err := RecordFile(ctx, r.db, f)
	return err
}
