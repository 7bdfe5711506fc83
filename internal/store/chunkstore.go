package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

// ChunkStore is the persistent vector+metadata store keyed by chunk id. It
// keeps a resident cache of decoded vectors so semantic queries don't pay
// a blob-decode cost per candidate on every request.
type ChunkStore struct {
	db *DB

	mu     sync.RWMutex
	cached map[string][]float32
	dim    int
}

// NewChunkStore wraps db and warms the vector cache from disk.
func NewChunkStore(db *DB) (*ChunkStore, error) {
	cs := &ChunkStore{db: db, cached: make(map[string][]float32)}
	if err := cs.warmCache(context.Background()); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *ChunkStore) warmCache(ctx context.Context) error {
	rows, err := cs.db.Conn.QueryContext(ctx, `SELECT chunk_id, embedding FROM chunks`)
	if err != nil {
		return err
	}
	defer rows.Close()

	cs.mu.Lock()
	defer cs.mu.Unlock()
	for rows.Next() {
		var chunkID string
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return err
		}
		vec := bytesToFloat32Slice(blob)
		cs.cached[chunkID] = vec
		if len(vec) > 0 && cs.dim == 0 {
			cs.dim = len(vec)
		}
	}
	return rows.Err()
}

// Upsert inserts or replaces a chunk's vector, metadata, and text. When tx
// is non-nil, the resident cache is not touched until the returned apply
// func is called; the caller must call it only after tx.Commit() succeeds,
// so a rolled-back write never leaves the cache ahead of the database. A
// nil tx applies the cache mutation immediately and returns a no-op apply.
func (cs *ChunkStore) Upsert(ctx context.Context, tx *sql.Tx, c domain.Chunk) (apply func(), err error) {
	exec := cs.execer(tx)
	blob := float32SliceToBytes(c.Embedding)

	_, err = exec.ExecContext(ctx, `
		INSERT INTO chunks (chunk_id, source_id, ordinal, text, embedding, display_name, file_type, total_in_source, size_bytes, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			source_id=excluded.source_id, ordinal=excluded.ordinal, text=excluded.text,
			embedding=excluded.embedding, display_name=excluded.display_name,
			file_type=excluded.file_type, total_in_source=excluded.total_in_source,
			size_bytes=excluded.size_bytes, modified_at=excluded.modified_at
	`, c.ChunkID, c.SourceID, c.Ordinal, c.Text, blob, c.Metadata.DisplayName, c.Metadata.FileType,
		c.Metadata.TotalInSource, c.Metadata.SizeBytes, c.Metadata.ModifiedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert chunk: %w", err)
	}

	applyUpsert := func() {
		cs.mu.Lock()
		cs.cached[c.ChunkID] = c.Embedding
		if len(c.Embedding) > 0 && cs.dim == 0 {
			cs.dim = len(c.Embedding)
		}
		cs.mu.Unlock()
	}
	if tx == nil {
		applyUpsert()
		return func() {}, nil
	}
	return applyUpsert, nil
}

// DeleteBySource removes every chunk belonging to sourceID and returns the
// ids removed, so callers can also purge them from the Lexical Index. As
// with Upsert, a non-nil tx defers the cache mutation to the returned apply
// func, to be run only after the transaction commits. Idempotent.
func (cs *ChunkStore) DeleteBySource(ctx context.Context, tx *sql.Tx, sourceID string) (ids []string, apply func(), err error) {
	exec := cs.execer(tx)

	rows, err := exec.QueryContext(ctx, `SELECT chunk_id FROM chunks WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()

	if _, err := exec.ExecContext(ctx, `DELETE FROM chunks WHERE source_id = ?`, sourceID); err != nil {
		return nil, nil, fmt.Errorf("delete chunks by source: %w", err)
	}

	applyDelete := func() {
		cs.mu.Lock()
		for _, id := range ids {
			delete(cs.cached, id)
		}
		cs.mu.Unlock()
	}
	if tx == nil {
		applyDelete()
		return ids, func() {}, nil
	}
	return ids, applyDelete, nil
}

// CountBySource returns how many chunks are currently stored for sourceID.
func (cs *ChunkStore) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := cs.db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE source_id = ?`, sourceID).Scan(&count)
	return count, err
}

// Get fetches one chunk's text and metadata by id.
func (cs *ChunkStore) Get(ctx context.Context, chunkID string) (domain.Chunk, error) {
	row := cs.db.Conn.QueryRowContext(ctx, `
		SELECT chunk_id, source_id, ordinal, text, embedding, display_name, file_type, total_in_source, size_bytes, modified_at
		FROM chunks WHERE chunk_id = ?`, chunkID)
	return scanChunk(row)
}

// VectorHit is one similarity-ranked candidate.
type VectorHit struct {
	ChunkID  string
	Score    float64
	Metadata domain.ChunkMetadata
	Text     string
}

// QuerySemantic ranks resident chunks by cosine similarity to q, returning
// the top k in descending score order. Score lies in [-1, 1].
func (cs *ChunkStore) QuerySemantic(ctx context.Context, q []float32, k int) ([]VectorHit, error) {
	cs.mu.RLock()
	candidates := make([]string, 0, len(cs.cached))
	for id, vec := range cs.cached {
		if len(vec) == len(q) {
			candidates = append(candidates, id)
		}
	}
	cs.mu.RUnlock()

	type scored struct {
		id    string
		score float64
	}
	scoredList := make([]scored, 0, len(candidates))
	cs.mu.RLock()
	for _, id := range candidates {
		scoredList = append(scoredList, scored{id: id, score: cosineSimilarity(q, cs.cached[id])})
	}
	cs.mu.RUnlock()

	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].score != scoredList[j].score {
			return scoredList[i].score > scoredList[j].score
		}
		return scoredList[i].id < scoredList[j].id
	})
	if k > 0 && len(scoredList) > k {
		scoredList = scoredList[:k]
	}

	hits := make([]VectorHit, 0, len(scoredList))
	for _, s := range scoredList {
		c, err := cs.Get(ctx, s.id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		hits = append(hits, VectorHit{ChunkID: s.id, Score: s.score, Metadata: c.Metadata, Text: c.Text})
	}
	return hits, nil
}

// Stats reports counts used by the stats endpoint.
type Stats struct {
	TotalChunks int
	Dimension   int
	PersistDir  string
}

// Stats returns a snapshot of the store's size and configuration.
func (cs *ChunkStore) Stats(ctx context.Context) (Stats, error) {
	var total int
	if err := cs.db.Conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&total); err != nil {
		return Stats{}, err
	}
	cs.mu.RLock()
	dim := cs.dim
	cs.mu.RUnlock()
	return Stats{TotalChunks: total, Dimension: dim, PersistDir: cs.db.Dir}, nil
}

func (cs *ChunkStore) execer(tx *sql.Tx) interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
} {
	if tx != nil {
		return tx
	}
	return cs.db.Conn
}

func scanChunk(row *sql.Row) (domain.Chunk, error) {
	var c domain.Chunk
	var blob []byte
	var modifiedAt sql.NullTime
	if err := row.Scan(&c.ChunkID, &c.SourceID, &c.Ordinal, &c.Text, &blob,
		&c.Metadata.DisplayName, &c.Metadata.FileType, &c.Metadata.TotalInSource,
		&c.Metadata.SizeBytes, &modifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Chunk{}, apperr.ErrNotFound
		}
		return domain.Chunk{}, err
	}
	c.Embedding = bytesToFloat32Slice(blob)
	c.Metadata.SourceID = c.SourceID
	c.Metadata.Ordinal = c.Ordinal
	if modifiedAt.Valid {
		c.Metadata.ModifiedAt = modifiedAt.Time
	}
	return c, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
