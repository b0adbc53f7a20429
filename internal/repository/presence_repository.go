package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
)

// Bounds is an optional lat/lng box used to narrow the eligible scan before
// exact distances are computed.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// EligibleFilter selects presence rows that may be matched.
//
//	ExcludeUserID   – the viewer; never returned.
//	ActivatedBefore – latest acceptable activated_at (now − smallest dwell threshold).
//	SeenSince       – earliest acceptable last_seen_at (now − expiry window).
//	Bounds          – optional coarse box; nil scans everything.
type EligibleFilter struct {
	ExcludeUserID   string
	ActivatedBefore time.Time
	SeenSince       time.Time
	Bounds          *Bounds
}

// HeartbeatInput is one position report.
type HeartbeatInput struct {
	UserID       string
	Lat          float64
	Lng          float64
	VenueType    string
	IsStationary bool
	Now          time.Time
}

// PresenceRepo provides data access to the presence table.
type PresenceRepo struct {
	db *sql.DB
}

// NewPresenceRepo returns a new PresenceRepo bound to the provided database.
func NewPresenceRepo(db *sql.DB) *PresenceRepo { return &PresenceRepo{db: db} }

const presenceColumns = `user_id, lat, lng, venue_type, is_stationary, discoverable, activated_at, last_seen_at`

// UpsertHeartbeat writes a heartbeat and returns the stored row.  The
// activated_at transition is evaluated inside the statement so concurrent
// heartbeats for the same user cannot interleave a read and a write.
// activated_at is assigned before is_stationary because MySQL evaluates
// ON DUPLICATE KEY UPDATE assignments left to right against the updated row.
func (r *PresenceRepo) UpsertHeartbeat(ctx context.Context, in HeartbeatInput) (model.Presence, error) {
	now := in.Now.UTC()
	var activated sql.NullTime
	if in.IsStationary {
		activated = sql.NullTime{Time: now, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO presence (`+presenceColumns+`)
		VALUES (?, ?, ?, ?, ?, TRUE, ?, ?)
		ON DUPLICATE KEY UPDATE
			activated_at = CASE
				WHEN VALUES(is_stationary) = FALSE THEN NULL
				WHEN presence.is_stationary = FALSE OR presence.activated_at IS NULL THEN VALUES(last_seen_at)
				ELSE presence.activated_at
			END,
			lat = VALUES(lat),
			lng = VALUES(lng),
			venue_type = VALUES(venue_type),
			is_stationary = VALUES(is_stationary),
			last_seen_at = VALUES(last_seen_at)`,
		in.UserID, in.Lat, in.Lng, nullString(in.VenueType), in.IsStationary, activated, now,
	)
	if err != nil {
		return model.Presence{}, err
	}
	return r.Get(ctx, in.UserID)
}

// Get fetches the presence row for a user.
func (r *PresenceRepo) Get(ctx context.Context, userID string) (model.Presence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+presenceColumns+` FROM presence WHERE user_id = ? LIMIT 1`, userID)
	p, err := scanPresence(row)
	if err != nil {
		return model.Presence{}, notFound(err)
	}
	return p, nil
}

// ListEligible returns discoverable, stationary, activated, non-expired rows
// other than the viewer's.  Per-venue dwell thresholds are applied by the
// caller on top of ActivatedBefore.
func (r *PresenceRepo) ListEligible(ctx context.Context, f EligibleFilter) ([]model.Presence, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + presenceColumns + ` FROM presence
		WHERE discoverable = TRUE
		  AND user_id <> ?
		  AND is_stationary = TRUE
		  AND activated_at IS NOT NULL
		  AND activated_at <= ?
		  AND last_seen_at >= ?`)
	args := []interface{}{f.ExcludeUserID, f.ActivatedBefore.UTC(), f.SeenSince.UTC()}
	if f.Bounds != nil {
		sb.WriteString(` AND lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`)
		args = append(args, f.Bounds.MinLat, f.Bounds.MaxLat, f.Bounds.MinLng, f.Bounds.MaxLng)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Presence
	for rows.Next() {
		p, err := scanPresence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPresence(s rowScanner) (model.Presence, error) {
	var (
		p         model.Presence
		venue     sql.NullString
		activated sql.NullTime
	)
	if err := s.Scan(&p.UserID, &p.Lat, &p.Lng, &venue, &p.IsStationary, &p.Discoverable, &activated, &p.LastSeenAt); err != nil {
		return model.Presence{}, err
	}
	p.VenueType = venue.String
	if activated.Valid {
		at := activated.Time.UTC()
		p.ActivatedAt = &at
	}
	p.LastSeenAt = p.LastSeenAt.UTC()
	return p, nil
}
