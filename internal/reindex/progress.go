package reindex

import (
	"sync"
	"time"
)

// RunStatus is the state of a bulk run.
type RunStatus string

const (
	// StatusIdle indicates no run has started.
	StatusIdle RunStatus = "idle"
	// StatusRunning indicates records are being recomputed.
	StatusRunning RunStatus = "running"
	// StatusDone indicates every batch completed.
	StatusDone RunStatus = "done"
	// StatusAborted indicates the kill switch or cancellation stopped the run.
	StatusAborted RunStatus = "aborted"
	// StatusError indicates the run failed.
	StatusError RunStatus = "error"
)

// ProgressSnapshot is an immutable snapshot of reindex progress.
type ProgressSnapshot struct {
	Status         string  `json:"status"`
	BatchesTotal   int     `json:"batches_total"`
	BatchesDone    int     `json:"batches_done"`
	RecordsTotal   int     `json:"records_total"`
	RecordsDone    int     `json:"records_done"`
	RecordsFailed  int     `json:"records_failed"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Progress provides thread-safe tracking of a bulk run. Renderers poll
// Snapshot while the run updates it.
type Progress struct {
	mu sync.RWMutex

	status        RunStatus
	batchesTotal  int
	batchesDone   int
	recordsTotal  int
	recordsDone   int
	recordsFailed int
	startTime     time.Time
	errorMessage  string
}

// NewProgress creates an idle progress tracker.
func NewProgress() *Progress {
	return &Progress{status: StatusIdle}
}

// Start marks the run as started.
func (p *Progress) Start(records, batches, batchesDone int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusRunning
	p.recordsTotal = records
	p.batchesTotal = batches
	p.batchesDone = batchesDone
	p.recordsDone = 0
	p.recordsFailed = 0
	p.errorMessage = ""
	p.startTime = time.Now()
}

// RecordDone counts one processed record.
func (p *Progress) RecordDone(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.recordsDone++
	if failed {
		p.recordsFailed++
	}
}

// BatchDone sets the number of completed batches.
func (p *Progress) BatchDone(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.batchesDone = done
}

// SetBatchesTotal corrects the batch total when the record set changed
// after the run counted it.
func (p *Progress) SetBatchesTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.batchesTotal = total
}

// Finish records the final state of the run.
func (p *Progress) Finish(status RunStatus, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = status
	p.errorMessage = message
}

// Reset returns the tracker to idle.
func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusIdle
	p.batchesTotal = 0
	p.batchesDone = 0
	p.recordsTotal = 0
	p.recordsDone = 0
	p.recordsFailed = 0
	p.startTime = time.Time{}
	p.errorMessage = ""
}

// IsRunning returns true while a run is in progress.
func (p *Progress) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusRunning
}

// Snapshot returns an immutable copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var progressPct float64
	if p.batchesTotal > 0 {
		progressPct = float64(p.batchesDone) / float64(p.batchesTotal) * 100.0
	}
	var elapsed int
	if !p.startTime.IsZero() {
		elapsed = int(time.Since(p.startTime).Seconds())
	}

	return ProgressSnapshot{
		Status:         string(p.status),
		BatchesTotal:   p.batchesTotal,
		BatchesDone:    p.batchesDone,
		RecordsTotal:   p.recordsTotal,
		RecordsDone:    p.recordsDone,
		RecordsFailed:  p.recordsFailed,
		ProgressPct:    progressPct,
		ElapsedSeconds: elapsed,
		ErrorMessage:   p.errorMessage,
	}
}
