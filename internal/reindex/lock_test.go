package reindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_ExclusiveAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")

	first := NewLock(dir)
	second := NewLock(dir)
	assert.Equal(t, filepath.Join(dir, LockFileName), first.Path())

	acquired, err := first.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())

	acquired, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, acquired)
	require.NoError(t, second.Unlock())
}
