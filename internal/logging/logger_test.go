package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONL(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	rt, err := New("debug")
	require.NoError(t, err)

	rt.Logger.Info("session starting", slog.String("component", "test"))
	require.NoError(t, rt.Close())

	data, err := os.ReadFile(rt.Path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"session starting"`)
	require.Contains(t, string(data), `"component":"test"`)
	require.True(t, strings.HasSuffix(rt.Path, filepath.Join("livetrans", "log.jsonl")))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
	require.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}
