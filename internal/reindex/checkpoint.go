package reindex

import (
	"fmt"
	"strconv"
	"strings"
)

// Checkpoint is the persisted resume point of an interrupted run: the
// number of completed batches and the smallest record id they covered.
// A resumed run continues below LastID, so records created in between
// do not shift the remaining window.
type Checkpoint struct {
	Batches int
	LastID  int64
}

// String renders the checkpoint as "<batches>:<last id>".
func (c Checkpoint) String() string {
	return fmt.Sprintf("%d:%d", c.Batches, c.LastID)
}

// ParseCheckpoint parses a stored checkpoint. It reports false for values
// that are not "<batches>:<last id>" with both parts positive.
func ParseCheckpoint(v string) (Checkpoint, bool) {
	batches, lastID, found := strings.Cut(strings.TrimSpace(v), ":")
	if !found {
		return Checkpoint{}, false
	}
	n, err := strconv.Atoi(batches)
	if err != nil || n <= 0 {
		return Checkpoint{}, false
	}
	id, err := strconv.ParseInt(lastID, 10, 64)
	if err != nil || id <= 0 {
		return Checkpoint{}, false
	}
	return Checkpoint{Batches: n, LastID: id}, true
}
