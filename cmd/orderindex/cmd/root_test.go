package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: an isolated environment
	newCLIEnv(t)

	// When: executing with --help
	out, err := execRoot("--help")

	// Then: it should list the command groups
	require.NoError(t, err)
	for _, sub := range []string{"reindex", "search", "lookup", "record", "user", "config", "logs", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	newCLIEnv(t)

	out, err := execRoot("--version")

	require.NoError(t, err)
	assert.Contains(t, out, "orderindex version")
}

func TestRootCmd_InvalidProjectConfig_FailsDataCommands(t *testing.T) {
	// Given: a project config with an unsupported driver
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".orderindex.yaml"),
		[]byte("storage:\n  driver: postgres\n"), 0o644))

	// When: running a command that opens the database
	_, err := env.exec("lookup", "guest-orders")

	// Then: the configuration error is reported
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_102")
}

func TestRootCmd_InvalidProjectConfig_VersionStillWorks(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".orderindex.yaml"),
		[]byte("storage:\n  driver: postgres\n"), 0o644))

	out, err := env.exec("version", "--short")

	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRootCmd_DefaultDatabaseUnderProjectDir(t *testing.T) {
	// Given: no --db flag
	env := newCLIEnv(t)

	// When: a command opens the database
	_, err := execRoot("--dir", env.dir, "lookup", "guest-orders")
	require.NoError(t, err)

	// Then: storage.path resolves against the project directory
	_, err = os.Stat(filepath.Join(env.dir, ".orderindex", "orderindex.db"))
	assert.NoError(t, err)
}

func TestRootCmd_ProfilingFlags_WriteFiles(t *testing.T) {
	// Given: every profiling flag
	env := newCLIEnv(t)
	cpu := filepath.Join(env.dir, "cpu.prof")
	heap := filepath.Join(env.dir, "heap.prof")

	// When: running a command
	env.mustExec("--profile-cpu", cpu, "--profile-mem", heap, "lookup", "guest-orders")

	// Then: the profiles are written
	for _, p := range []string{cpu, heap} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}
}

func TestRootCmd_WritesLogFile(t *testing.T) {
	// Given: the default logging configuration
	env := newCLIEnv(t)

	// When: running with --debug
	env.mustExec("--debug", "lookup", "guest-orders")

	// Then: the log lands under the home directory
	data, err := os.ReadFile(filepath.Join(env.home, ".orderindex", "logs", "orderindex.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "cli_started")
}

func TestRootCmd_UnwritableLogFile(t *testing.T) {
	// Given: logging.file points below a regular file
	env := newCLIEnv(t)
	blocker := filepath.Join(env.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".orderindex.yaml"),
		[]byte("logging:\n  file: blocker/orderindex.log\n"), 0o644))

	// When/Then: data commands fail
	_, err := env.exec("lookup", "guest-orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to setup logging")

	// When/Then: version still runs without a log
	out, err := env.exec("version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
