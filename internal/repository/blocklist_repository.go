package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
)

// BlocklistRepo persists permanent pair exclusions in pair_blocklist.  Rows
// are keyed by the canonical (user_low, user_high) pair; callers must
// canonicalize before calling.  There is deliberately no delete method.
type BlocklistRepo struct {
	db *sql.DB
}

// NewBlocklistRepo returns a new BlocklistRepo bound to the provided database.
func NewBlocklistRepo(db *sql.DB) *BlocklistRepo { return &BlocklistRepo{db: db} }

// Get fetches the entry for a canonical pair or returns ErrNotFound.
func (r *BlocklistRepo) Get(ctx context.Context, low, high string) (model.BlocklistEntry, error) {
	var (
		e   model.BlocklistEntry
		cid sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_low, user_high, reason, last_conversation_id, created_at, updated_at
		   FROM pair_blocklist
		  WHERE user_low = ? AND user_high = ?
		  LIMIT 1`,
		low, high,
	).Scan(&e.UserLow, &e.UserHigh, &e.Reason, &cid, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.BlocklistEntry{}, notFound(err)
	}
	e.LastConversationID = cid.String
	return e, nil
}

// Upsert inserts the pair or refreshes reason and last conversation id on an
// existing row.  An empty conversation id keeps the stored one.
func (r *BlocklistRepo) Upsert(ctx context.Context, e model.BlocklistEntry) error {
	now := e.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pair_blocklist (user_low, user_high, reason, last_conversation_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   reason = VALUES(reason),
		   last_conversation_id = COALESCE(VALUES(last_conversation_id), last_conversation_id),
		   updated_at = VALUES(updated_at)`,
		e.UserLow, e.UserHigh, e.Reason, nullString(e.LastConversationID), now, now,
	)
	return err
}
