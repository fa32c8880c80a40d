package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/reindex"
)

func running(done, total, records, failed int) reindex.ProgressSnapshot {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	return reindex.ProgressSnapshot{
		Status:        string(reindex.StatusRunning),
		BatchesDone:   done,
		BatchesTotal:  total,
		RecordsDone:   records,
		RecordsFailed: failed,
		ProgressPct:   pct,
	}
}

func TestPlainRenderer_Update_OutputFormat(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: a batch completes
	r.Update(running(1, 4, 10000, 2))

	// Then: one formatted line is printed
	assert.Equal(t, "[REINDEX] 1/4 batches (25%) - 10000 records, 2 failed\n", buf.String())
}

func TestPlainRenderer_Update_DeduplicatesBatches(t *testing.T) {
	// Given: a plain renderer polled repeatedly mid-batch
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: several snapshots share the same batch count
	r.Update(running(0, 2, 10, 0))
	r.Update(running(0, 2, 500, 0))
	r.Update(running(1, 2, 10000, 0))
	r.Update(running(1, 2, 10001, 0))

	// Then: one line per batch count
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestPlainRenderer_Update_IgnoresIdle(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Update(reindex.ProgressSnapshot{Status: string(reindex.StatusIdle)})
	r.Update(running(0, 0, 0, 0))

	assert.Empty(t, buf.String())
}

func TestPlainRenderer_Complete(t *testing.T) {
	tests := []struct {
		name string
		snap reindex.ProgressSnapshot
		err  error
		want string
	}{
		{
			name: "success",
			snap: reindex.ProgressSnapshot{BatchesDone: 3, BatchesTotal: 3, RecordsDone: 25000, ElapsedSeconds: 75},
			want: "Complete: 25000 records in 3 batches (1m 15s)\n",
		},
		{
			name: "success with failures",
			snap: reindex.ProgressSnapshot{BatchesDone: 1, BatchesTotal: 1, RecordsDone: 9, RecordsFailed: 2, ElapsedSeconds: 4},
			want: "Complete: 9 records in 1 batches (4s), 2 failed\n",
		},
		{
			name: "aborted",
			snap: reindex.ProgressSnapshot{BatchesDone: 2, BatchesTotal: 5},
			err:  coierrors.New(coierrors.ErrCodeBulkAborted, "kill switch", nil),
			want: "Aborted after 2 of 5 batches; rerun with --resume to continue\n",
		},
		{
			name: "failed",
			err:  errors.New("disk full"),
			want: "Failed: disk full\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewPlainRenderer(NewConfig(buf))

			r.Complete(tt.snap, tt.err)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_NoANSICodes(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.Update(running(1, 2, 5, 1))
	r.Complete(running(2, 2, 10, 1), nil)

	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(0))
	assert.Equal(t, "59s", formatDuration(59_400_000_000))
	assert.Equal(t, "2m", formatDuration(120_000_000_000))
	assert.Equal(t, "1h 1m", formatDuration(3_690_000_000_000))
}
