package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ailab/linkguard/internal/setup/config"
	"github.com/ailab/linkguard/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggers(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	manager := telemetry.NewManager("bot", logDir, &config.Debug{
		LogLevel:      "info",
		MaxLogsToKeep: 5,
		MaxLogLines:   100,
	})

	mainLogger, clientLogger, err := manager.GetLoggers()
	require.NoError(t, err)
	t.Cleanup(manager.Stop)

	assert.NotEmpty(t, manager.GetInstanceID())

	mainLogger.Info("moderation started")
	mainLogger.Debug("filtered by level")
	clientLogger.Warn("socket closed")
	require.NoError(t, mainLogger.Sync())
	require.NoError(t, clientLogger.Sync())

	sessionDir := manager.GetCurrentSessionDir()
	assert.Equal(t, logDir, filepath.Dir(sessionDir))

	mainLog, err := os.ReadFile(filepath.Join(sessionDir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(mainLog), "moderation started")
	assert.Contains(t, string(mainLog), manager.GetInstanceID())
	assert.NotContains(t, string(mainLog), "filtered by level")

	clientLog, err := os.ReadFile(filepath.Join(sessionDir, "whatsapp.log"))
	require.NoError(t, err)
	assert.Contains(t, string(clientLog), "socket closed")
}

func TestGetLoggersInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager("bot", t.TempDir(), &config.Debug{
		LogLevel:      "loud",
		MaxLogsToKeep: 5,
		MaxLogLines:   100,
	})
	t.Cleanup(manager.Stop)

	_, _, err := manager.GetLoggers()
	require.Error(t, err)
}

func TestLogSessionRotation(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()

	// Three older sessions with increasing modification times
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"old-1", "old-2", "old-3"} {
		dir := filepath.Join(logDir, name)
		require.NoError(t, os.Mkdir(dir, 0o755))

		modTime := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(dir, modTime, modTime))
	}

	manager := telemetry.NewManager("bot", logDir, &config.Debug{
		LogLevel:      "info",
		MaxLogsToKeep: 2,
		MaxLogLines:   100,
	})

	_, _, err := manager.GetLoggers()
	require.NoError(t, err)
	t.Cleanup(manager.Stop)

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	assert.Len(t, names, 2)
	assert.Contains(t, names, "old-3")
	assert.Contains(t, names, filepath.Base(manager.GetCurrentSessionDir()))
}
