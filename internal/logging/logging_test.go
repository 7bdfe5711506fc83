package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func resetLoggingDefaults() {
	SetOutput(os.Stderr)
	SetLevel(LevelInfo)
}

func TestNewTagsLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(resetLoggingDefaults)
	SetLevel(LevelInfo)

	log := New("scheduler")
	log.Info("task enqueued", "task_id", "t1")

	out := buf.String()
	require.Contains(t, out, "component=scheduler")
	require.Contains(t, out, "task enqueued")
	require.Contains(t, out, "task_id=t1")
}

func TestSetLevelFiltersBelowMinimum(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(resetLoggingDefaults)
	SetLevel(LevelWarn)

	log := New("api")
	log.Info("this should be filtered out")
	log.Warn("this should appear")

	out := buf.String()
	require.False(t, strings.Contains(out, "this should be filtered out"))
	require.True(t, strings.Contains(out, "this should appear"))
}

func TestWithAttachesAdditionalFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(resetLoggingDefaults)
	SetLevel(LevelInfo)

	log := New("watch").With("root", "/tmp/docs")
	log.Info("refresh triggered")

	require.Contains(t, buf.String(), "root=/tmp/docs")
}
