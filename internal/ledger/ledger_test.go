package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radhakrish-venkat/desktop-search/internal/domain"
	"github.com/radhakrish-venkat/desktop-search/internal/store"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestClassifyNewWhenNoEntry(t *testing.T) {
	l := newTestLedger(t)
	ref := domain.SourceRef{SourceID: "/a.txt", SizeBytes: 10, ModifiedAt: time.Now()}
	class, err := l.Classify(context.Background(), "/dir", ref, "hash1")
	require.NoError(t, err)
	require.Equal(t, domain.ClassNew, class)
}

func TestClassifyUnchangedWhenHashMatchesDespiteTouchedMetadata(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, l.Put(ctx, nil, "/dir", domain.FileState{
		SourceID: "/a.txt", SizeBytes: 10, ModifiedAt: now, ContentHash: "hash1",
		ChunkIDs: []string{"c1"}, IndexedAt: now,
	}))

	ref := domain.SourceRef{SourceID: "/a.txt", SizeBytes: 11, ModifiedAt: now.Add(time.Hour)}
	class, err := l.Classify(ctx, "/dir", ref, "hash1")
	require.NoError(t, err)
	require.Equal(t, domain.ClassUnchanged, class)
}

func TestClassifyModifiedWhenBothMetadataAndHashDiffer(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, l.Put(ctx, nil, "/dir", domain.FileState{
		SourceID: "/a.txt", SizeBytes: 10, ModifiedAt: now, ContentHash: "hash1",
		ChunkIDs: []string{"c1"}, IndexedAt: now,
	}))

	ref := domain.SourceRef{SourceID: "/a.txt", SizeBytes: 20, ModifiedAt: now.Add(time.Hour)}
	class, err := l.Classify(ctx, "/dir", ref, "hash2")
	require.NoError(t, err)
	require.Equal(t, domain.ClassModified, class)
}

func TestForgetRemovesEntry(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, l.Put(ctx, nil, "/dir", domain.FileState{SourceID: "/a.txt", IndexedAt: now, ModifiedAt: now}))
	require.NoError(t, l.Forget(ctx, nil, "/dir", "/a.txt"))

	ids, err := l.ListSourceIDs(ctx, "/dir")
	require.NoError(t, err)
	require.Empty(t, ids)
}
