package repository

import (
	"context"
	"database/sql"
)

// MediaRepo reads the media_items table written by the upload service.
type MediaRepo struct{ DB *sql.DB }

func NewMediaRepo(db *sql.DB) *MediaRepo { return &MediaRepo{DB: db} }

// PrimaryObjectKey returns the object key of the user's primary photo or
// ErrNotFound when the user has none.
func (r *MediaRepo) PrimaryObjectKey(ctx context.Context, userID string) (string, error) {
	var key string
	err := r.DB.QueryRowContext(ctx,
		`SELECT object_key FROM media_items
		  WHERE user_id = ? AND is_primary = TRUE
		  ORDER BY id ASC LIMIT 1`,
		userID,
	).Scan(&key)
	if err != nil {
		return "", notFound(err)
	}
	return key, nil
}
