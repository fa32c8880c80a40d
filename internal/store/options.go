package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
)

// Option names persisted by the bulk reindexer.
const (
	OptionKillSwitch = "coi_kill_switch"
	OptionStatus     = "coi_status"
	OptionCheckpoint = "coi_checkpoint_batch"
)

// GetOption returns a persisted option value. ok is false when unset.
func (s *Store) GetOption(ctx context.Context, name string) (string, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", ColOptionValue, s.opts.Name, ColOptionName)

	var value sql.NullString
	err := s.db.QueryRowContext(ctx, query, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, coierrors.StoreReadError("get option", err).WithDetail("option", name)
	}
	return value.String, true, nil
}

// SetOption persists an option value.
func (s *Store) SetOption(ctx context.Context, name, value string) error {
	return s.Upsert(ctx, s.opts.Name, s.opts.Key, Row{
		{ColOptionName, name},
		{ColOptionValue, value},
	})
}

// DeleteOption removes an option.
func (s *Store) DeleteOption(ctx context.Context, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.opts.Name, ColOptionName)
	if _, err := s.db.ExecContext(ctx, query, name); err != nil {
		return coierrors.StoreWriteError("delete option", err).WithDetail("option", name)
	}
	return nil
}
