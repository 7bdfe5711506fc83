// Package scheduler runs per-directory ingest tasks under a global worker
// pool, walking a registered directory, diffing it against the ledger, and
// driving extraction, chunking, embedding, and index writes for anything
// new or changed.
package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/radhakrish-venkat/desktop-search/internal/apperr"
	"github.com/radhakrish-venkat/desktop-search/internal/chunk"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
	"github.com/radhakrish-venkat/desktop-search/internal/embed"
	"github.com/radhakrish-venkat/desktop-search/internal/extract"
	"github.com/radhakrish-venkat/desktop-search/internal/index"
	"github.com/radhakrish-venkat/desktop-search/internal/ledger"
	"github.com/radhakrish-venkat/desktop-search/internal/logging"
	"github.com/radhakrish-venkat/desktop-search/internal/registry"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
	"github.com/radhakrish-venkat/desktop-search/internal/textproc"
)

// skipDirs are directory basenames never walked into.
var skipDirs = map[string]struct{}{
	".git": {}, ".svn": {}, "node_modules": {}, "__pycache__": {},
	"dist": {}, "build": {}, ".vscode": {}, ".idea": {},
}

// skipSuffixes are file suffixes ignored during a walk.
var skipSuffixes = []string{".tmp", ".log"}

// TaskState is the lifecycle of one scheduler task.
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// Task tracks one directory ingest run.
type Task struct {
	ID     string
	Path   string
	State  TaskState
	Error  string
	cancel context.CancelFunc
}

// Scheduler owns the bounded worker pool and per-directory serialization
// for ingest tasks.
type Scheduler struct {
	db        *store.DB
	registry  *registry.Registry
	ledger    *ledger.Ledger
	chunks    *store.ChunkStore
	lexical   *index.LexicalIndex
	extractor *extract.Registry
	embedder  embed.Embedder
	chunker   *chunk.Chunker
	log       *logging.Logger

	sem chan struct{}

	mu      sync.Mutex
	tasks   map[string]*Task
	byPath  map[string]string // directory path -> in-flight task id
}

// Config configures a Scheduler.
type Config struct {
	DB              *store.DB
	Registry        *registry.Registry
	Ledger          *ledger.Ledger
	Chunks          *store.ChunkStore
	Lexical         *index.LexicalIndex
	Extractor       *extract.Registry
	Embedder        embed.Embedder
	Chunker         *chunk.Chunker
	WorkerPoolSize  int
}

// New builds a Scheduler with the given worker pool cap (default 5).
func New(cfg Config) *Scheduler {
	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 5
	}
	return &Scheduler{
		db:        cfg.DB,
		registry:  cfg.Registry,
		ledger:    cfg.Ledger,
		chunks:    cfg.Chunks,
		lexical:   cfg.Lexical,
		extractor: cfg.Extractor,
		embedder:  cfg.Embedder,
		chunker:   cfg.Chunker,
		log:       logging.New("scheduler"),
		sem:       make(chan struct{}, poolSize),
		tasks:     make(map[string]*Task),
		byPath:    make(map[string]string),
	}
}

// Enqueue starts (or returns the existing) ingest task for path. A refresh
// request while a directory is already indexing returns the live task id
// rather than starting a second one, per the serialization rule for a
// single directory.
func (s *Scheduler) Enqueue(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	s.mu.Lock()
	if existing, ok := s.byPath[abs]; ok {
		s.mu.Unlock()
		return existing, nil
	}

	taskID := fmt.Sprintf("dir_%d_%s", time.Now().UnixMilli(), slug(abs))
	taskCtx, cancel := context.WithCancel(context.Background())
	task := &Task{ID: taskID, Path: abs, State: TaskQueued, cancel: cancel}
	s.tasks[taskID] = task
	s.byPath[abs] = taskID
	s.mu.Unlock()

	go s.run(taskCtx, task)

	return taskID, nil
}

// Cancel signals a running task to stop at the next file boundary.
func (s *Scheduler) Cancel(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return apperr.ErrNotFound
	}
	t.cancel()
	return nil
}

// Status returns a snapshot of a task's current state.
func (s *Scheduler) Status(taskID string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return Task{}, apperr.ErrNotFound
	}
	return *t, nil
}

func (s *Scheduler) run(ctx context.Context, task *Task) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	defer func() {
		s.mu.Lock()
		delete(s.byPath, task.Path)
		s.mu.Unlock()
	}()

	s.setState(task, TaskRunning)
	_ = s.registry.Update(task.Path, func(e *domain.DirectoryEntry) {
		e.Status = domain.StatusIndexing
		e.Progress = 0
		e.LastTaskID = task.ID
	})

	err := s.ingest(ctx, task)

	switch {
	case errors.Is(err, context.Canceled):
		s.setState(task, TaskCancelled)
		s.log.Info("ingest cancelled", "task", task.ID, "path", task.Path)
	case err != nil:
		s.setState(task, TaskFailed)
		task.Error = err.Error()
		_ = s.registry.Update(task.Path, func(e *domain.DirectoryEntry) {
			e.Status = domain.StatusError
			e.LastError = err.Error()
		})
		s.log.Error("ingest failed", "task", task.ID, "path", task.Path, "err", err)
	default:
		s.setState(task, TaskCompleted)
		now := time.Now()
		_ = s.registry.Update(task.Path, func(e *domain.DirectoryEntry) {
			e.Status = domain.StatusIndexed
			e.Progress = 1.0
			e.LastIndexedAt = &now
			e.LastError = ""
		})
		s.log.Info("ingest complete", "task", task.ID, "path", task.Path)
	}
}

func (s *Scheduler) setState(task *Task, state TaskState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.State = state
}

// ingest walks task.Path, classifies every discovered file against the
// ledger, ingests new/modified files, and reconciles deletions.
func (s *Scheduler) ingest(ctx context.Context, task *Task) error {
	files, err := s.walk(task.Path)
	if err != nil {
		return fmt.Errorf("walk directory: %w", err)
	}

	seen := make(map[string]struct{}, len(files))
	var indexed int

	for _, path := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		seen[path] = struct{}{}
		if err := s.ingestOne(ctx, task.Path, path); err != nil {
			s.log.Warn("skipping file", "path", path, "err", err)
		}

		indexed++
		progress := float64(indexed) / float64(max(len(files), 1))
		_ = s.registry.Update(task.Path, func(e *domain.DirectoryEntry) {
			e.TotalFiles = len(files)
			e.IndexedFiles = indexed
			e.Progress = progress
		})
	}

	return s.reconcile(ctx, task.Path, seen)
}

// ingestOne handles one file's full classify -> extract -> chunk -> embed
// -> upsert pipeline, all writes to the Chunk Store, Lexical Index, and
// Ledger landing in a single transaction.
func (s *Scheduler) ingestOne(ctx context.Context, dirPath, filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}

	ref := domain.SourceRef{
		SourceID:   filePath,
		DisplayName: filepath.Base(filePath),
		FileType:   strings.TrimPrefix(filepath.Ext(filePath), "."),
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
	}

	// Cheap metadata-only pre-check: if size and mtime already match the
	// ledger, Classify would resolve to ClassUnchanged no matter what the
	// content hash turns out to be, so skip extraction and hashing entirely.
	unchanged, err := s.ledger.PeekUnchanged(ctx, dirPath, ref)
	if err != nil {
		return err
	}
	if unchanged {
		return nil
	}

	result, err := s.extractor.Extract(ctx, filePath)
	if err != nil {
		if errors.Is(err, apperr.ErrUnsupportedType) || errors.Is(err, apperr.ErrTooLarge) || errors.Is(err, apperr.ErrContentRejected) {
			return nil
		}
		return err
	}

	contentHash := hashText(result.Text)
	class, err := s.ledger.Classify(ctx, dirPath, ref, contentHash)
	if err != nil {
		return err
	}
	if class == domain.ClassUnchanged {
		return nil
	}

	windows := s.chunker.Chunk(result.Text)
	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}

	var vectors [][]float32
	if s.embedder != nil && len(texts) > 0 {
		vectors, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			s.log.Warn("embedding unavailable, indexing keyword-only", "path", filePath, "err", err)
			vectors = nil
		}
	}

	tx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// pending accumulates the in-memory cache/postings mutations that
	// correspond to writes made inside tx. None of them run until tx
	// actually commits, so a rollback partway through never leaves the
	// resident search state ahead of what the database holds.
	var pending []func()

	staleIDs, deleteApply, err := s.chunks.DeleteBySource(ctx, tx, ref.SourceID)
	if err != nil {
		return err
	}
	pending = append(pending, deleteApply)
	for _, staleID := range staleIDs {
		removeApply, err := s.lexical.Remove(ctx, tx, staleID)
		if err != nil {
			return err
		}
		pending = append(pending, removeApply)
	}

	chunkIDs := make([]string, len(windows))
	for i, w := range windows {
		id := chunkID(ref.SourceID, w.Ordinal)
		chunkIDs[i] = id

		var vec []float32
		if vectors != nil {
			vec = vectors[i]
		}

		c := domain.Chunk{
			ChunkID:   id,
			SourceID:  ref.SourceID,
			Ordinal:   w.Ordinal,
			Text:      w.Text,
			Embedding: vec,
			Metadata: domain.ChunkMetadata{
				DisplayName:   ref.DisplayName,
				FileType:      ref.FileType,
				SourceID:      ref.SourceID,
				Ordinal:       w.Ordinal,
				TotalInSource: len(windows),
				SizeBytes:     ref.SizeBytes,
				ModifiedAt:    ref.ModifiedAt,
			},
		}
		upsertApply, err := s.chunks.Upsert(ctx, tx, c)
		if err != nil {
			return err
		}
		pending = append(pending, upsertApply)
		addApply, err := s.lexical.Add(ctx, tx, id, textproc.Tokenize(w.Text))
		if err != nil {
			return err
		}
		pending = append(pending, addApply)
	}

	state := domain.FileState{
		SourceID:    ref.SourceID,
		SizeBytes:   ref.SizeBytes,
		ModifiedAt:  ref.ModifiedAt,
		ContentHash: contentHash,
		ChunkIDs:    chunkIDs,
		IndexedAt:   time.Now(),
	}
	if err := s.ledger.Put(ctx, tx, dirPath, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, apply := range pending {
		apply()
	}
	return nil
}

// reconcile deletes chunks and ledger entries for any source_id previously
// recorded under dirPath but not observed during this walk.
func (s *Scheduler) reconcile(ctx context.Context, dirPath string, seen map[string]struct{}) error {
	known, err := s.ledger.ListSourceIDs(ctx, dirPath)
	if err != nil {
		return err
	}

	for _, sourceID := range known {
		if _, ok := seen[sourceID]; ok {
			continue
		}
		if err := s.purgeSource(ctx, dirPath, sourceID); err != nil {
			return err
		}
	}
	return nil
}

// purgeSource deletes one source's chunks (Chunk Store and Lexical Index)
// and its ledger entry, in one transaction. As in ingestOne, the resident
// cache/postings mutations are deferred until the transaction commits.
func (s *Scheduler) purgeSource(ctx context.Context, dirPath, sourceID string) error {
	tx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var pending []func()

	staleIDs, deleteApply, err := s.chunks.DeleteBySource(ctx, tx, sourceID)
	if err != nil {
		return err
	}
	pending = append(pending, deleteApply)
	for _, staleID := range staleIDs {
		removeApply, err := s.lexical.Remove(ctx, tx, staleID)
		if err != nil {
			return err
		}
		pending = append(pending, removeApply)
	}
	if err := s.ledger.Forget(ctx, tx, dirPath, sourceID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, apply := range pending {
		apply()
	}
	return nil
}

// Purge cancels any in-flight task for dirPath, then deletes every chunk
// and ledger entry recorded under it. Directory removal calls this before
// dropping the registry record so no chunk or ledger row outlives its
// directory.
func (s *Scheduler) Purge(ctx context.Context, dirPath string) error {
	abs, err := filepath.Abs(dirPath)
	if err != nil {
		abs = dirPath
	}

	s.mu.Lock()
	if taskID, ok := s.byPath[abs]; ok {
		if t, ok := s.tasks[taskID]; ok {
			t.cancel()
		}
	}
	s.mu.Unlock()

	sourceIDs, err := s.ledger.ListSourceIDs(ctx, abs)
	if err != nil {
		return err
	}
	for _, sourceID := range sourceIDs {
		if err := s.purgeSource(ctx, abs, sourceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || isSkipDir(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || hasSkipSuffix(name) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func isSkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip
}

func hasSkipSuffix(name string) bool {
	for _, suf := range skipSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func chunkID(sourceID string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", sourceID, ordinal)))
	return hex.EncodeToString(sum[:16])
}

func slug(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	s := b.String()
	if len(s) > 40 {
		s = s[len(s)-40:]
	}
	return strings.Trim(s, "-")
}

