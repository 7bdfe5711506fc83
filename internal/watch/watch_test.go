package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunDebouncesBurstsIntoOneRefresh(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var calls []string

	w, err := New(func(_ context.Context, root string) error {
		mu.Lock()
		calls = append(calls, root)
		mu.Unlock()
		return nil
	}, 50*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, 2*time.Second, 20*time.Millisecond, "a burst of writes should collapse into one debounced refresh")
}

func TestOwnerOfMatchesRegisteredRoot(t *testing.T) {
	w, err := New(func(context.Context, string) error { return nil }, 0)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	require.NoError(t, w.Add(t.TempDir()))
	w.roots["/a/b"] = struct{}{}
	require.Equal(t, "/a/b", w.ownerOf("/a/b/c.txt"))
	require.Equal(t, "", w.ownerOf("/other/c.txt"))
}
