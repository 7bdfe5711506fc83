package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDataDirAndDatabaseFile(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")

	db, err := Open(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.Equal(t, dataDir, db.Dir)
	require.FileExists(t, filepath.Join(dataDir, "engine.db"))
}

func TestOpenRejectsEmptyDataDir(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestOpenIsIdempotentAcrossReopens(t *testing.T) {
	dataDir := t.TempDir()

	db1, err := Open(dataDir)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := Open(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() { db2.Close() })

	var version int
	err = db2.Conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	require.Greater(t, version, 0)
}
