package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestFileLoggerWritesJSONAboveLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "crystalgen.log")
	logger, closer, err := New(Options{Level: "warn", File: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("generation failed", "seq", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "generation failed", rec["msg"])
	require.InDelta(t, 3, rec["seq"], 0)
}

func TestNoDestinationDiscards(t *testing.T) {
	t.Parallel()

	logger, closer, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, closer)
	require.NotPanics(t, func() { logger.Error("nowhere") })
}

func TestFanoutReachesAllHandlers(t *testing.T) {
	t.Parallel()

	var a, b strings.Builder
	f := fanout{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(f).With("component", "viewer")
	logger.Info("loaded")
	logger.Error("render failed")

	require.Contains(t, a.String(), "loaded")
	require.Contains(t, a.String(), "component=viewer")
	require.NotContains(t, b.String(), "loaded")
	require.Contains(t, b.String(), "render failed")
}
