// Package reindex recomputes every indexed record in fixed-size batches,
// with a persisted status line, a kill switch polled before each record,
// and a checkpoint that lets an interrupted run resume.
package reindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/metrics"
	"github.com/Aman-CERP/orderindex/internal/store"
)

// Defaults.
const (
	DefaultBatchSize  = 10000
	DefaultPurgeEvery = 1000
	statusTimeLayout  = "2006-01-02 15:04:05"
)

// Source pages through every record to reindex.
type Source interface {
	CountRecords(ctx context.Context) (int, error)
	// ListRecordIDs returns up to limit ids below beforeID, ordered by id
	// descending. A beforeID of 0 starts at the newest record.
	ListRecordIDs(ctx context.Context, beforeID int64, limit int) ([]int64, error)
}

// Recomputer rebuilds the index rows of one record.
type Recomputer interface {
	Recompute(ctx context.Context, id int64) error
}

// OptionStore persists the kill switch, status line and checkpoint.
type OptionStore interface {
	GetOption(ctx context.Context, name string) (string, bool, error)
	SetOption(ctx context.Context, name, value string) error
	DeleteOption(ctx context.Context, name string) error
}

// Purger drops a cache working set.
type Purger interface {
	Purge()
}

// Config contains the collaborators and tuning of a Reindexer.
type Config struct {
	Source  Source
	Index   Recomputer
	Options OptionStore

	// Cache is purged every PurgeEvery records (optional).
	Cache      Purger
	PurgeEvery int

	// BatchSize is the number of records per batch (default 10000).
	BatchSize int

	// LockDir holds the single-runner lock file (optional).
	LockDir string

	Now    func() time.Time
	Logger *slog.Logger
}

// RunOptions controls one run.
type RunOptions struct {
	// Resume continues below the record id recorded in the checkpoint.
	Resume bool
}

// Reindexer drives bulk recomputes.
type Reindexer struct {
	cfg      Config
	progress *Progress
	logger   *slog.Logger
}

// New creates a reindexer.
func New(cfg Config) (*Reindexer, error) {
	if cfg.Source == nil || cfg.Index == nil || cfg.Options == nil {
		return nil, coierrors.InternalError("reindexer requires a source, an index and an option store", nil)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PurgeEvery <= 0 {
		cfg.PurgeEvery = DefaultPurgeEvery
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{cfg: cfg, progress: NewProgress(), logger: logger}, nil
}

// Progress returns the live progress tracker.
func (r *Reindexer) Progress() *Progress {
	return r.progress
}

// ResetProgress clears the kill switch and the checkpoint and writes a
// "0 of N" status line.
func (r *Reindexer) ResetProgress(ctx context.Context) error {
	if err := r.cfg.Options.SetOption(ctx, store.OptionKillSwitch, "0"); err != nil {
		return err
	}
	if err := r.cfg.Options.DeleteOption(ctx, store.OptionCheckpoint); err != nil {
		return err
	}
	r.progress.Reset()

	total, err := r.cfg.Source.CountRecords(ctx)
	if err != nil {
		return coierrors.StoreReadError("count records", err)
	}
	return r.writeStatus(ctx, 0, r.batches(total))
}

// Kill sets the kill switch. A running job stops before its next record.
func (r *Reindexer) Kill(ctx context.Context) error {
	return r.cfg.Options.SetOption(ctx, store.OptionKillSwitch, "1")
}

// Status returns the persisted status line, "" when no run has written one.
func (r *Reindexer) Status(ctx context.Context) (string, error) {
	v, _, err := r.cfg.Options.GetOption(ctx, store.OptionStatus)
	return v, err
}

// Run recomputes every record. It returns ErrBulkAborted when the kill
// switch or ctx stops it, ErrBulkLocked when another run holds the lock.
// Per-record failures are counted and logged, not returned.
func (r *Reindexer) Run(ctx context.Context, opts RunOptions) (ProgressSnapshot, error) {
	if r.cfg.LockDir != "" {
		lock := NewLock(r.cfg.LockDir)
		acquired, err := lock.TryLock()
		if err != nil {
			return r.progress.Snapshot(), coierrors.InternalError("reindex lock", err)
		}
		if !acquired {
			return r.progress.Snapshot(), coierrors.BulkLocked(lock.Path())
		}
		defer func() { _ = lock.Unlock() }()
	}

	var start Checkpoint
	if opts.Resume {
		cp, err := r.checkpoint(ctx)
		if err != nil {
			return r.fail(err)
		}
		start = cp
	} else if err := r.cfg.Options.DeleteOption(ctx, store.OptionCheckpoint); err != nil {
		return r.fail(err)
	}
	if err := r.cfg.Options.SetOption(ctx, store.OptionKillSwitch, "0"); err != nil {
		return r.fail(err)
	}

	total, err := r.cfg.Source.CountRecords(ctx)
	if err != nil {
		return r.fail(coierrors.StoreReadError("count records", err))
	}
	batches := r.batches(total)
	if start.Batches > batches {
		batches = start.Batches
	}
	r.progress.Start(total, batches, start.Batches)

	r.logger.Info("reindex_started",
		slog.Int("records", total),
		slog.Int("batches", batches),
		slog.Int("start_batch", start.Batches),
		slog.Int64("start_below_id", start.LastID),
		slog.Int("batch_size", r.cfg.BatchSize))

	// Pages are keyed on the last id seen. Records created during the run
	// get higher ids and never shift a page.
	done, cursor := start.Batches, start.LastID
	processed := 0
	for {
		if err := r.writeStatus(ctx, done, batches); err != nil {
			return r.fail(err)
		}

		ids, err := r.cfg.Source.ListRecordIDs(ctx, cursor, r.cfg.BatchSize)
		if err != nil {
			return r.fail(coierrors.StoreReadError("list records", err))
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			if reason := r.shouldStop(ctx); reason != "" {
				return r.abort(done, batches, reason)
			}

			failed := false
			if err := r.cfg.Index.Recompute(ctx, id); err != nil && !errors.Is(err, coierrors.ErrRecordNotFound) {
				failed = true
				r.logger.Warn("reindex_record_failed",
					slog.Int64("record_id", id),
					slog.String("error", err.Error()))
			}
			r.progress.RecordDone(failed)
			metrics.ReindexRecordsTotal.Inc()

			processed++
			if r.cfg.Cache != nil && processed%r.cfg.PurgeEvery == 0 {
				r.cfg.Cache.Purge()
			}
		}

		cursor = ids[len(ids)-1]
		done++
		if done > batches {
			batches = done
			r.progress.SetBatchesTotal(batches)
		}
		r.progress.BatchDone(done)
		cp := Checkpoint{Batches: done, LastID: cursor}
		if err := r.cfg.Options.SetOption(ctx, store.OptionCheckpoint, cp.String()); err != nil {
			return r.fail(err)
		}
		if err := r.writeStatus(ctx, done, batches); err != nil {
			return r.fail(err)
		}
		r.logger.Info("reindex_batch_done",
			slog.Int("batch", done),
			slog.Int("batches", batches),
			slog.Int("records", len(ids)),
			slog.Int64("last_id", cursor))

		if len(ids) < r.cfg.BatchSize {
			break
		}
	}

	if err := r.cfg.Options.DeleteOption(ctx, store.OptionCheckpoint); err != nil {
		return r.fail(err)
	}
	// Records deleted during the run leave fewer batches than counted.
	if done < batches {
		batches = done
		r.progress.SetBatchesTotal(batches)
		if err := r.writeStatus(ctx, done, batches); err != nil {
			return r.fail(err)
		}
	}
	r.progress.Finish(StatusDone, "")
	snap := r.progress.Snapshot()
	r.logger.Info("reindex_completed",
		slog.Int("records", snap.RecordsDone),
		slog.Int("failed", snap.RecordsFailed),
		slog.Int("elapsed_seconds", snap.ElapsedSeconds))
	return snap, nil
}

// shouldStop polls cancellation and the kill switch. It returns the reason
// to stop, or "".
func (r *Reindexer) shouldStop(ctx context.Context) string {
	if ctx.Err() != nil {
		return "cancelled"
	}
	v, _, err := r.cfg.Options.GetOption(ctx, store.OptionKillSwitch)
	if err != nil {
		r.logger.Warn("reindex_kill_switch_unreadable", slog.String("error", err.Error()))
		return ""
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
		return "kill switch"
	}
	return ""
}

func (r *Reindexer) abort(batch, batches int, reason string) (ProgressSnapshot, error) {
	metrics.ReindexAbortsTotal.Inc()
	r.progress.Finish(StatusAborted, reason)
	snap := r.progress.Snapshot()
	r.logger.Warn("reindex_aborted",
		slog.String("reason", reason),
		slog.Int("batch", batch),
		slog.Int("batches", batches),
		slog.Int("records_done", snap.RecordsDone))
	return snap, coierrors.BulkAborted(reason, snap.BatchesDone, batches)
}

func (r *Reindexer) fail(err error) (ProgressSnapshot, error) {
	r.progress.Finish(StatusError, err.Error())
	r.logger.Error("reindex_failed", slog.String("error", err.Error()))
	return r.progress.Snapshot(), err
}

func (r *Reindexer) checkpoint(ctx context.Context) (Checkpoint, error) {
	v, ok, err := r.cfg.Options.GetOption(ctx, store.OptionCheckpoint)
	if err != nil || !ok {
		return Checkpoint{}, err
	}
	cp, ok := ParseCheckpoint(v)
	if !ok {
		r.logger.Warn("reindex_checkpoint_invalid", slog.String("value", v))
		return Checkpoint{}, nil
	}
	return cp, nil
}

func (r *Reindexer) batches(total int) int {
	return (total + r.cfg.BatchSize - 1) / r.cfg.BatchSize
}

func (r *Reindexer) writeStatus(ctx context.Context, done, total int) error {
	return r.cfg.Options.SetOption(ctx, store.OptionStatus, FormatStatus(r.cfg.Now(), done, total))
}

// FormatStatus renders the persisted status line.
func FormatStatus(at time.Time, done, total int) string {
	return fmt.Sprintf("%s: %d of %d batches updated", at.Format(statusTimeLayout), done, total)
}
