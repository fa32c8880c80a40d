package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func burn() int {
	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	return sum
}

func TestStart_WritesAllRequestedProfiles(t *testing.T) {
	// Given: all three profile paths
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}

	// When: a session runs some work and stops
	s, err := Start(opts)
	require.NoError(t, err)
	_ = burn()
	require.NoError(t, s.Stop())

	// Then: every file exists with content
	for _, p := range []string{opts.CPU, opts.Heap, opts.Trace} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Greater(t, info.Size(), int64(0), p)
	}
}

func TestStart_NoOptions(t *testing.T) {
	// Given: no profiles requested
	opts := Options{}
	assert.False(t, opts.Enabled())

	// When: started and stopped
	s, err := Start(opts)
	require.NoError(t, err)

	// Then: stop is a no-op and can be repeated
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}

func TestStart_BadPath(t *testing.T) {
	// Given: a CPU path in a missing directory
	opts := Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")}

	// When: starting
	_, err := Start(opts)

	// Then: it fails
	assert.Error(t, err)
}

func TestStart_BadTracePathStopsCPU(t *testing.T) {
	// Given: a valid CPU path but an invalid trace path
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Trace: filepath.Join(dir, "missing", "trace.out"),
	}

	// When: starting
	_, err := Start(opts)
	require.Error(t, err)

	// Then: CPU profiling was released and can start again
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.prof")})
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
}

func TestWriteHeap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.prof")

	require.NoError(t, WriteHeap(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
