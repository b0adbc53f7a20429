package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/utils"
)

// ConversationRepo stores conversation participants, their reveal state and
// the set of distinct message senders.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo returns a new ConversationRepo bound to the provided database.
func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{db: db} }

// Ensure creates the conversation if it does not exist and returns the
// stored row.  An existing row is returned unchanged, so callers must check
// that its participants match.
func (r *ConversationRepo) Ensure(ctx context.Context, id, userA, userB string, now time.Time) (model.Conversation, error) {
	low, high := utils.CanonicalPair(userA, userB)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_low, user_high, status, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE id = id`,
		id, low, high, model.ConversationOpen, now.UTC(),
	)
	if err != nil {
		return model.Conversation{}, err
	}
	return r.Get(ctx, id)
}

// Get fetches a conversation by id or returns ErrNotFound.
func (r *ConversationRepo) Get(ctx context.Context, id string) (model.Conversation, error) {
	var (
		c        model.Conversation
		revealed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_low, user_high, status, revealed_at, created_at
		   FROM conversations WHERE id = ? LIMIT 1`,
		id,
	).Scan(&c.ID, &c.UserLow, &c.UserHigh, &c.Status, &revealed, &c.CreatedAt)
	if err != nil {
		return model.Conversation{}, notFound(err)
	}
	if revealed.Valid {
		at := revealed.Time.UTC()
		c.RevealedAt = &at
	}
	return c, nil
}

// SetStatusIfOpen moves an open conversation to status and reports whether
// it did.  Resolved conversations keep their first resolution.
func (r *ConversationRepo) SetStatusIfOpen(ctx context.Context, id, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET status = ? WHERE id = ? AND status = ?`,
		status, id, model.ConversationOpen,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkRevealed sets revealed_at once.  It reports whether this call was the
// one that set it.
func (r *ConversationRepo) MarkRevealed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET revealed_at = ? WHERE id = ? AND revealed_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordSender remembers that senderID has posted in the conversation.
func (r *ConversationRepo) RecordSender(ctx context.Context, conversationID, senderID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversation_senders (conversation_id, sender_id, first_seen_at)
		 VALUES (?, ?, UTC_TIMESTAMP())
		 ON DUPLICATE KEY UPDATE sender_id = sender_id`,
		conversationID, senderID,
	)
	return err
}

// CountSenders returns the number of distinct senders in a conversation.
func (r *ConversationRepo) CountSenders(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_senders WHERE conversation_id = ?`,
		conversationID,
	).Scan(&n)
	return n, err
}
