package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
)

// CycleRepo provides data access to the daily_cycle_slot table.  The table
// carries two unique keys, (viewer_id, day_key, slot) and
// (viewer_id, day_key, target_id); concurrent allocators rely on them and
// retry when Insert reports ErrDuplicate.
type CycleRepo struct {
	db *sql.DB
}

// NewCycleRepo returns a new CycleRepo bound to the provided database.
func NewCycleRepo(db *sql.DB) *CycleRepo { return &CycleRepo{db: db} }

const cycleColumns = `viewer_id, day_key, slot, target_id, conversation_id, status, created_at, updated_at`

// ListByViewerDay returns the viewer's slots for a day ordered by slot.
func (r *CycleRepo) ListByViewerDay(ctx context.Context, viewerID, dayKey string) ([]model.CycleSlot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cycleColumns+` FROM daily_cycle_slot
		  WHERE viewer_id = ? AND day_key = ?
		  ORDER BY slot ASC`,
		viewerID, dayKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CycleSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindByTarget returns the slot a target holds for the viewer's day, or
// ErrNotFound.
func (r *CycleRepo) FindByTarget(ctx context.Context, viewerID, dayKey, targetID string) (model.CycleSlot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cycleColumns+` FROM daily_cycle_slot
		  WHERE viewer_id = ? AND day_key = ? AND target_id = ?
		  LIMIT 1`,
		viewerID, dayKey, targetID,
	)
	s, err := scanSlot(row)
	if err != nil {
		return model.CycleSlot{}, notFound(err)
	}
	return s, nil
}

// Insert creates a slot row.  A unique key violation returns ErrDuplicate.
func (r *CycleRepo) Insert(ctx context.Context, s model.CycleSlot) error {
	now := s.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_cycle_slot (`+cycleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ViewerID, s.DayKey, s.Slot, s.TargetID, nullString(s.ConversationID), s.Status, now, now,
	)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// SetConversationIfEmpty records a conversation id on a slot that has none.
// A slot that already carries a conversation id keeps it.
func (r *CycleRepo) SetConversationIfEmpty(ctx context.Context, viewerID, dayKey, targetID, conversationID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE daily_cycle_slot
		    SET conversation_id = ?, updated_at = UTC_TIMESTAMP()
		  WHERE viewer_id = ? AND day_key = ? AND target_id = ?
		    AND (conversation_id IS NULL OR conversation_id = '')`,
		conversationID, viewerID, dayKey, targetID,
	)
	return err
}

// UpdateStatus sets the status of the slot held by targetID.
func (r *CycleRepo) UpdateStatus(ctx context.Context, viewerID, dayKey, targetID, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE daily_cycle_slot
		    SET status = ?, updated_at = UTC_TIMESTAMP()
		  WHERE viewer_id = ? AND day_key = ? AND target_id = ?`,
		status, viewerID, dayKey, targetID,
	)
	return err
}

func scanSlot(s rowScanner) (model.CycleSlot, error) {
	var (
		out model.CycleSlot
		cid sql.NullString
	)
	if err := s.Scan(&out.ViewerID, &out.DayKey, &out.Slot, &out.TargetID, &cid, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return model.CycleSlot{}, err
	}
	out.ConversationID = cid.String
	return out, nil
}
