package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sadopc/stepr/internal/config"
	"github.com/sadopc/stepr/internal/health"
	"github.com/sadopc/stepr/internal/prefs"
	"github.com/sadopc/stepr/internal/store"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// testEnv returns an env over an in-memory store and preference map, with
// days computed in UTC.
func testEnv(t *testing.T) *env {
	t.Helper()

	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Aggregation.Timezone = "UTC"

	e, err := newEnv(cfg, s, prefs.NewMemory(), nil)
	require.NoError(t, err)
	return e
}

func addSample(t *testing.T, e *env, start string, minutes int, count int64) {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	_, _, err = e.store.InsertSample(context.Background(), health.Sample{
		Count: count,
		Start: ts,
		End:   ts.Add(time.Duration(minutes) * time.Minute),
	}, "test")
	require.NoError(t, err)
}

// writeConfig writes a config file whose storage lives in a temp dir and
// returns its path.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "storage:\n  path: " + dir + "\naggregation:\n  timezone: UTC\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
