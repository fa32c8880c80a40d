package index

import (
	"context"
	"errors"
	"log/slog"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/metrics"
	"github.com/Aman-CERP/orderindex/internal/record"
)

// Maintainer is the part of the Engine the trigger drives.
type Maintainer interface {
	Recompute(ctx context.Context, id int64) error
	UpdateCustomer(ctx context.Context, userID int64) error
}

// Trigger receives mutation notifications from the host store and decides
// whether they need index work. It never returns errors: a failed recompute
// is logged and converges on the next mutation or bulk run.
type Trigger struct {
	index  Maintainer
	logger *slog.Logger
}

// NewTrigger creates a trigger driving m.
func NewTrigger(m Maintainer, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{index: m, logger: logger}
}

// OnAttributeChanged handles a record attribute write. The new value is
// only logged: the row is always rebuilt from a fresh read.
func (t *Trigger) OnAttributeChanged(ctx context.Context, id int64, kind record.Kind, name, value string) {
	if !kind.Valid() || !record.TriggersRecompute(name) {
		metrics.TriggerDecisionsTotal.WithLabelValues("ignore").Inc()
		return
	}
	metrics.TriggerDecisionsTotal.WithLabelValues("recompute").Inc()

	if err := t.index.Recompute(ctx, id); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, coierrors.ErrRecordNotFound) {
			level = slog.LevelDebug
		}
		t.logger.Log(ctx, level, "index_recompute_failed",
			slog.Int64("record_id", id),
			slog.String("kind", string(kind)),
			slog.String("attribute", name),
			slog.Int("value_len", len(value)),
			slog.String("error", err.Error()))
	}
}

// OnUserProfileUpdated propagates a user's email and name to the index.
func (t *Trigger) OnUserProfileUpdated(ctx context.Context, userID int64) {
	if err := t.index.UpdateCustomer(ctx, userID); err != nil {
		t.logger.Warn("index_customer_update_failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()))
	}
}

// OnUserAttributeChanged handles a single user attribute write. Only email
// and name changes reach the index.
func (t *Trigger) OnUserAttributeChanged(ctx context.Context, userID int64, name string) {
	if !record.TriggersProfileUpdate(name) {
		return
	}
	t.OnUserProfileUpdated(ctx, userID)
}
