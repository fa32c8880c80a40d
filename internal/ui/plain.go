package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/reindex"
)

// PlainRenderer prints one line per completed batch (for CI/pipes).
type PlainRenderer struct {
	mu          sync.Mutex
	out         io.Writer
	printed     bool
	lastBatches int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// Update implements Renderer. Repeated snapshots of the same batch are
// printed once.
func (r *PlainRenderer) Update(snap reindex.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.Status != string(reindex.StatusRunning) || snap.BatchesTotal == 0 {
		return
	}
	if r.printed && snap.BatchesDone == r.lastBatches {
		return
	}
	r.printed = true
	r.lastBatches = snap.BatchesDone

	_, _ = fmt.Fprintf(r.out, "[REINDEX] %d/%d batches (%.0f%%) - %d records, %d failed\n",
		snap.BatchesDone, snap.BatchesTotal, snap.ProgressPct, snap.RecordsDone, snap.RecordsFailed)
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(snap reindex.ProgressSnapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Duration(snap.ElapsedSeconds) * time.Second
	switch {
	case errors.Is(err, coierrors.ErrBulkAborted):
		_, _ = fmt.Fprintf(r.out, "Aborted after %d of %d batches; rerun with --resume to continue\n",
			snap.BatchesDone, snap.BatchesTotal)
	case err != nil:
		_, _ = fmt.Fprintf(r.out, "Failed: %v\n", err)
	default:
		_, _ = fmt.Fprintf(r.out, "Complete: %d records in %d batches (%s)",
			snap.RecordsDone, snap.BatchesTotal, formatDuration(elapsed))
		if snap.RecordsFailed > 0 {
			_, _ = fmt.Fprintf(r.out, ", %d failed", snap.RecordsFailed)
		}
		_, _ = fmt.Fprintln(r.out)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

var _ Renderer = (*PlainRenderer)(nil)
