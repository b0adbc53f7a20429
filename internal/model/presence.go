package model

import "time"

// Presence represents a row in the `presence` table.  There is exactly one
// row per user and every heartbeat overwrites it in place.  Rows are never
// deleted; a record whose LastSeenAt is older than the expiry window is
// simply ignored by matching.
//
// Fields:
//  UserID       – opaque user id (UUID string), primary key.
//  Lat, Lng     – last reported position in degrees.
//  VenueType    – optional venue tag (e.g. "gym"); empty when unknown.
//  IsStationary – whether the device reported itself as not moving.
//  Discoverable – whether the user may appear in other users' results.
//  ActivatedAt  – when the current stationary streak began; nil while moving.
//  LastSeenAt   – time of the most recent heartbeat.
type Presence struct {
	UserID       string     // presence.user_id
	Lat          float64    // presence.lat
	Lng          float64    // presence.lng
	VenueType    string     // presence.venue_type (nullable)
	IsStationary bool       // presence.is_stationary
	Discoverable bool       // presence.discoverable
	ActivatedAt  *time.Time // presence.activated_at (nullable)
	LastSeenAt   time.Time  // presence.last_seen_at
}

// NextActivation applies the stationary activation rule for a heartbeat
// arriving at now.  prev is the stored record, or nil on first heartbeat.
// The streak start is set on a moving→stationary transition, cleared when
// moving, and left untouched by a repeated stationary heartbeat.
func NextActivation(prev *Presence, stationary bool, now time.Time) *time.Time {
	if !stationary {
		return nil
	}
	if prev != nil && prev.IsStationary && prev.ActivatedAt != nil {
		at := *prev.ActivatedAt
		return &at
	}
	at := now
	return &at
}
