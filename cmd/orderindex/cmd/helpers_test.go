package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cliEnv is an isolated project directory, home and database for one test.
type cliEnv struct {
	t    *testing.T
	home string
	dir  string
	db   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CI", "1")
	for _, k := range []string{"ORDERINDEX_DB_PATH", "ORDERINDEX_DB_DRIVER", "ORDERINDEX_LOG_LEVEL", "ORDERINDEX_BATCH_SIZE"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	return &cliEnv{t: t, home: home, dir: dir, db: filepath.Join(dir, "index.db")}
}

// exec runs the root command with --dir and --db set and returns the
// combined output.
func (e *cliEnv) exec(args ...string) (string, error) {
	e.t.Helper()
	full := append([]string{"--dir", e.dir, "--db", e.db}, args...)
	return execRoot(full...)
}

// mustExec is exec that fails the test on error.
func (e *cliEnv) mustExec(args ...string) string {
	e.t.Helper()
	out, err := e.exec(args...)
	require.NoError(e.t, err, out)
	return out
}

// mustID runs a command that prints one id.
func (e *cliEnv) mustID(args ...string) int64 {
	e.t.Helper()
	out := e.mustExec(args...)
	id, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	require.NoError(e.t, err, out)
	return id
}

func execRoot(args ...string) (string, error) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	// PersistentPostRunE is skipped when RunE fails.
	_ = stopProfilingAndLogging(nil, nil)
	return buf.String(), err
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func lines(out string) []string {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
