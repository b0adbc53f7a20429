package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
)

// PushTokenRepo stores Expo push tokens per user device.
type PushTokenRepo struct{ DB *sql.DB }

func NewPushTokenRepo(db *sql.DB) *PushTokenRepo { return &PushTokenRepo{DB: db} }

// Upsert registers a token.  Rows are unique per (user_id, device_id) and per
// (user_id, token); a re-registration refreshes token, platform and updated_at.
func (r *PushTokenRepo) Upsert(ctx context.Context, t model.PushToken) error {
	now := t.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO push_tokens (user_id, token, platform, device_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   token = VALUES(token),
		   platform = VALUES(platform),
		   updated_at = VALUES(updated_at)`,
		t.UserID, t.Token, nullString(t.Platform), nullString(t.DeviceID), now,
	)
	return err
}

// ListByUser returns the user's tokens, most recently updated first.
func (r *PushTokenRepo) ListByUser(ctx context.Context, userID string) ([]model.PushToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id, token, platform, device_id, updated_at
		   FROM push_tokens WHERE user_id = ?
		  ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PushToken
	for rows.Next() {
		var (
			t        model.PushToken
			platform sql.NullString
			device   sql.NullString
		)
		if err := rows.Scan(&t.UserID, &t.Token, &platform, &device, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Platform = platform.String
		t.DeviceID = device.String
		out = append(out, t)
	}
	return out, rows.Err()
}
