// Package ledger tracks the last-seen state of each indexed source so the
// scheduler can classify a fresh scan as new, unchanged, modified, or
// deleted without re-extracting unchanged files.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
)

// Ledger is a per-directory record of every source's last-seen metadata,
// keyed by (directory_path, source_id).
type Ledger struct {
	db *store.DB
}

// New wraps db.
func New(db *store.DB) *Ledger {
	return &Ledger{db: db}
}

// Lookup returns the stored FileState for sourceID under directoryPath, or
// apperr.ErrNotFound.
func (l *Ledger) Lookup(ctx context.Context, directoryPath, sourceID string) (domain.FileState, error) {
	row := l.db.Conn.QueryRowContext(ctx, `
		SELECT source_id, size_bytes, modified_at, content_hash, chunk_ids, indexed_at
		FROM file_states WHERE directory_path = ? AND source_id = ?`, directoryPath, sourceID)

	var fs domain.FileState
	var chunkIDsJSON string
	if err := row.Scan(&fs.SourceID, &fs.SizeBytes, &fs.ModifiedAt, &fs.ContentHash, &chunkIDsJSON, &fs.IndexedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FileState{}, apperr.ErrNotFound
		}
		return domain.FileState{}, err
	}
	if err := json.Unmarshal([]byte(chunkIDsJSON), &fs.ChunkIDs); err != nil {
		return domain.FileState{}, fmt.Errorf("decode chunk ids: %w", err)
	}
	return fs, nil
}

// Put upserts a source's state.
func (l *Ledger) Put(ctx context.Context, tx *sql.Tx, directoryPath string, fs domain.FileState) error {
	chunkIDsJSON, err := json.Marshal(fs.ChunkIDs)
	if err != nil {
		return fmt.Errorf("encode chunk ids: %w", err)
	}

	exec := l.execer(tx)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO file_states (directory_path, source_id, size_bytes, modified_at, content_hash, chunk_ids, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(directory_path, source_id) DO UPDATE SET
			size_bytes=excluded.size_bytes, modified_at=excluded.modified_at,
			content_hash=excluded.content_hash, chunk_ids=excluded.chunk_ids, indexed_at=excluded.indexed_at
	`, directoryPath, fs.SourceID, fs.SizeBytes, fs.ModifiedAt, fs.ContentHash, string(chunkIDsJSON), fs.IndexedAt)
	if err != nil {
		return fmt.Errorf("upsert file state: %w", err)
	}
	return nil
}

// Forget removes a source's ledger entry.
func (l *Ledger) Forget(ctx context.Context, tx *sql.Tx, directoryPath, sourceID string) error {
	exec := l.execer(tx)
	_, err := exec.ExecContext(ctx, `DELETE FROM file_states WHERE directory_path = ? AND source_id = ?`, directoryPath, sourceID)
	return err
}

// ListSourceIDs returns every source_id currently recorded under directoryPath.
func (l *Ledger) ListSourceIDs(ctx context.Context, directoryPath string) ([]string, error) {
	rows, err := l.db.Conn.QueryContext(ctx, `SELECT source_id FROM file_states WHERE directory_path = ?`, directoryPath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PeekUnchanged reports whether ref's size and modification time already
// match the ledger's last-seen state for its source_id, without decoding
// content_hash or requiring the caller to have extracted anything yet.
// Classify always resolves to ClassUnchanged when metadata matches
// regardless of content hash, so a true result here lets the caller skip
// extraction and hashing entirely during a refresh of unchanged files.
func (l *Ledger) PeekUnchanged(ctx context.Context, directoryPath string, ref domain.SourceRef) (bool, error) {
	existing, err := l.Lookup(ctx, directoryPath, ref.SourceID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.SizeBytes == ref.SizeBytes && existing.ModifiedAt.Equal(ref.ModifiedAt), nil
}

// Classify compares a freshly observed SourceRef against the ledger's
// last-seen state and returns new/unchanged/modified. Deletion is
// determined by the caller during reconciliation (a source_id present in
// the ledger but not observed during the walk), not by this method.
func (l *Ledger) Classify(ctx context.Context, directoryPath string, ref domain.SourceRef, decodedContentHash string) (domain.Classification, error) {
	existing, err := l.Lookup(ctx, directoryPath, ref.SourceID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return domain.ClassNew, nil
		}
		return "", err
	}

	metadataDiffers := existing.SizeBytes != ref.SizeBytes || !existing.ModifiedAt.Equal(ref.ModifiedAt)
	hashDiffers := existing.ContentHash != decodedContentHash

	switch {
	case metadataDiffers && hashDiffers:
		return domain.ClassModified, nil
	default:
		return domain.ClassUnchanged, nil
	}
}

func (l *Ledger) execer(tx *sql.Tx) interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return l.db.Conn
}
