package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogs_FiltersByEvent(t *testing.T) {
	// Given: a reindex that logged its lifecycle
	env := newCLIEnv(t)
	seedCustomer(t, env)
	env.mustExec("reindex", "--no-tui")

	// When: filtering by event
	out := env.mustExec("logs", "--event", "reindex_completed")

	// Then: only that event is shown
	assert.Contains(t, out, "reindex_completed")
	assert.NotContains(t, out, "reindex_started")
}

func TestLogs_ExplicitFile(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(env.dir, "custom.log")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"time":"2026-01-01T00:00:00Z","level":"WARN","msg":"index_upsert_failed","record_id":7}`+"\n"+
			`{"time":"2026-01-01T00:00:01Z","level":"INFO","msg":"reindex_batch_done","batch":1}`+"\n"), 0o644))

	out := env.mustExec("logs", "--file", path, "--level", "warn")

	assert.Contains(t, out, "index_upsert_failed")
	assert.NotContains(t, out, "reindex_batch_done")
}

func TestLogs_MissingFile(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.exec("logs", "--file", filepath.Join(env.dir, "nope.log"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file not found")
}

func TestLogs_BadPattern(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(env.dir, "custom.log")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	_, err := env.exec("logs", "--file", path, "--grep", "(")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --grep pattern")
}
