package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/repository"
	"github.com/iliyamo/tapin-reveal/internal/utils"
)

const maxVenueTypeLen = 32

// PresenceService records heartbeats.  It is the only writer of presence rows.
type PresenceService struct {
	store   PresenceStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPresenceService(store PresenceStore, m *metrics.Metrics) *PresenceService {
	return &PresenceService{store: store, metrics: m, now: time.Now}
}

// HeartbeatRequest is one position report from a device.
type HeartbeatRequest struct {
	UserID       string
	Lat          float64
	Lng          float64
	IsStationary bool
	VenueType    string
}

// Heartbeat validates and stores a position report and returns the stored
// record.  The activation timestamp transition happens inside the store's
// upsert.
func (s *PresenceService) Heartbeat(ctx context.Context, req HeartbeatRequest) (model.Presence, error) {
	if req.UserID == "" {
		return model.Presence{}, invalid("user_id", "required")
	}
	if !utils.ValidCoordinates(req.Lat, req.Lng) {
		return model.Presence{}, invalid("lat/lng", "out of range")
	}
	venue := strings.ToLower(strings.TrimSpace(req.VenueType))
	if len(venue) > maxVenueTypeLen {
		return model.Presence{}, invalid("venue_type", "too long")
	}

	p, err := s.store.UpsertHeartbeat(ctx, repository.HeartbeatInput{
		UserID:       req.UserID,
		Lat:          req.Lat,
		Lng:          req.Lng,
		VenueType:    venue,
		IsStationary: req.IsStationary,
		Now:          s.now().UTC(),
	})
	if err != nil {
		return model.Presence{}, err
	}
	s.metrics.Heartbeat()
	return p, nil
}
