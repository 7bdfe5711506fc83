// Package index implements the in-process inverted index used for keyword
// search: token -> chunk -> term frequency, with document-frequency
// counts for TF-IDF scoring. It is persisted alongside the Chunk Store as
// a snapshot table, written in the same transaction as chunk upserts.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	"github.com/radhakrish-venkat/desktop-search/internal/store"
)

// LexicalIndex is a term -> chunk -> tf map, guarded for concurrent reads
// with exclusive writer access per source batch.
type LexicalIndex struct {
	db *store.DB

	mu       sync.RWMutex
	postings map[string]map[string]int // term -> chunkID -> tf
	chunkLen map[string]int            // chunkID -> total token count
	docs     map[string]struct{}       // chunkID set, for total_docs()
}

// New creates an empty LexicalIndex bound to db for persistence.
func New(db *store.DB) *LexicalIndex {
	return &LexicalIndex{
		db:       db,
		postings: make(map[string]map[string]int),
		chunkLen: make(map[string]int),
		docs:     make(map[string]struct{}),
	}
}

// Load rehydrates the in-memory index from the postings snapshot table.
func (idx *LexicalIndex) Load(ctx context.Context) error {
	rows, err := idx.db.Conn.QueryContext(ctx, `SELECT term, chunk_id, tf FROM postings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for rows.Next() {
		var term, chunkID string
		var tf int
		if err := rows.Scan(&term, &chunkID, &tf); err != nil {
			return err
		}
		idx.addLocked(term, chunkID, tf)
	}
	return rows.Err()
}

func (idx *LexicalIndex) addLocked(term, chunkID string, tf int) {
	if idx.postings[term] == nil {
		idx.postings[term] = make(map[string]int)
	}
	idx.postings[term][chunkID] = tf
	idx.chunkLen[chunkID] += tf
	idx.docs[chunkID] = struct{}{}
}

// Add indexes tokens under chunkID, replacing any prior entry for that
// chunk, and persists the postings inside tx (same transaction as the
// chunk upsert it accompanies). The in-memory postings are not touched
// until the returned apply func runs; the caller must run it only after
// tx.Commit() succeeds, so a rolled-back write can never strand postings
// for chunk ids the database never actually committed.
func (idx *LexicalIndex) Add(ctx context.Context, tx *sql.Tx, chunkID string, tokens []string) (apply func(), err error) {
	tf := make(map[string]int)
	for _, t := range tokens {
		tf[t]++
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM postings WHERE chunk_id = ?`, chunkID); err != nil {
		return nil, fmt.Errorf("clear postings: %w", err)
	}
	for term, count := range tf {
		if _, err := tx.ExecContext(ctx, `INSERT INTO postings (term, chunk_id, tf) VALUES (?, ?, ?)`, term, chunkID, count); err != nil {
			return nil, fmt.Errorf("insert posting: %w", err)
		}
	}

	return func() {
		idx.removeMemory(chunkID)
		idx.mu.Lock()
		for term, count := range tf {
			idx.addLocked(term, chunkID, count)
		}
		idx.mu.Unlock()
	}, nil
}

// Remove deletes chunkID from the index. As with Add, a non-nil tx defers
// the in-memory removal to the returned apply func, to be run only after
// the transaction commits; a nil tx applies immediately.
func (idx *LexicalIndex) Remove(ctx context.Context, tx *sql.Tx, chunkID string) (apply func(), err error) {
	exec := idx.execer(tx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM postings WHERE chunk_id = ?`, chunkID); err != nil {
		return nil, err
	}
	if tx == nil {
		idx.removeMemory(chunkID)
		return func() {}, nil
	}
	return func() { idx.removeMemory(chunkID) }, nil
}

func (idx *LexicalIndex) removeMemory(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for term, chunks := range idx.postings {
		if _, ok := chunks[chunkID]; ok {
			delete(chunks, chunkID)
			if len(chunks) == 0 {
				delete(idx.postings, term)
			}
		}
	}
	delete(idx.chunkLen, chunkID)
	delete(idx.docs, chunkID)
}

// Postings returns the set of chunk ids containing term.
func (idx *LexicalIndex) Postings(term string) map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make(map[string]int, len(idx.postings[term]))
	for k, v := range idx.postings[term] {
		out[k] = v
	}
	return out
}

// DocFreq returns the number of chunks containing term.
func (idx *LexicalIndex) DocFreq(term string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings[term])
}

// TotalDocs returns the number of chunks currently indexed.
func (idx *LexicalIndex) TotalDocs() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Score computes Sum_t (tf(t,c)/|c|) * log(N/df(t)) for the given query
// tokens against one chunk.
func (idx *LexicalIndex) Score(queryTokens []string, chunkID string) float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	chunkLen := idx.chunkLen[chunkID]
	if chunkLen == 0 {
		return 0
	}
	n := len(idx.docs)
	if n == 0 {
		return 0
	}

	var score float64
	for _, term := range queryTokens {
		tf := idx.postings[term][chunkID]
		if tf == 0 {
			continue
		}
		df := len(idx.postings[term])
		if df == 0 {
			continue
		}
		score += (float64(tf) / float64(chunkLen)) * math.Log(float64(n)/float64(df))
	}
	return score
}

func (idx *LexicalIndex) execer(tx *sql.Tx) interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return idx.db.Conn
}
