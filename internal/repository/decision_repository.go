package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
)

// DecisionRepo persists reveal decisions, one row per (conversation, user).
type DecisionRepo struct {
	db *sql.DB
}

// NewDecisionRepo returns a new DecisionRepo bound to the provided database.
func NewDecisionRepo(db *sql.DB) *DecisionRepo { return &DecisionRepo{db: db} }

// Upsert records a decision; resubmission overwrites the previous one.
func (r *DecisionRepo) Upsert(ctx context.Context, d model.RevealDecision) error {
	at := d.DecidedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reveal_decision (conversation_id, user_id, other_user_id, decision, decided_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   other_user_id = VALUES(other_user_id),
		   decision = VALUES(decision),
		   decided_at = VALUES(decided_at)`,
		d.ConversationID, d.UserID, d.OtherUserID, d.Decision, at,
	)
	return err
}

// Get returns the decision userID recorded for a conversation or ErrNotFound.
func (r *DecisionRepo) Get(ctx context.Context, conversationID, userID string) (model.RevealDecision, error) {
	var d model.RevealDecision
	err := r.db.QueryRowContext(ctx,
		`SELECT conversation_id, user_id, other_user_id, decision, decided_at
		   FROM reveal_decision
		  WHERE conversation_id = ? AND user_id = ?
		  LIMIT 1`,
		conversationID, userID,
	).Scan(&d.ConversationID, &d.UserID, &d.OtherUserID, &d.Decision, &d.DecidedAt)
	if err != nil {
		return model.RevealDecision{}, notFound(err)
	}
	return d, nil
}
