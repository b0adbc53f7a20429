package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/config"
	"github.com/iliyamo/tapin-reveal/internal/repository"
	"github.com/iliyamo/tapin-reveal/internal/utils"
)

// metersPerDegreeLat is the length of one degree of latitude on the
// haversine sphere.
const metersPerDegreeLat = utils.EarthRadiusMeters * math.Pi / 180

// Candidate is a user within range of the viewer.
type Candidate struct {
	UserID    string
	Lat       float64
	Lng       float64
	DistanceM float64
}

// ProximityMatcher finds eligible users around a point.
type ProximityMatcher struct {
	store PresenceStore
	cfg   config.MatchConfig
	now   func() time.Time
}

func NewProximityMatcher(store PresenceStore, cfg config.MatchConfig) *ProximityMatcher {
	return &ProximityMatcher{store: store, cfg: cfg, now: time.Now}
}

// ResolveRadius applies the default and maximum radius rules.
func (m *ProximityMatcher) ResolveRadius(radius float64) (float64, error) {
	if math.IsNaN(radius) || radius <= 0 {
		return m.cfg.DefaultRadius, nil
	}
	if radius > m.cfg.MaxRadius {
		return 0, invalid("radius_m", "exceeds maximum")
	}
	return radius, nil
}

// FindCandidates returns users that are discoverable, stationary for at
// least their venue's dwell threshold, seen within the expiry window and
// inside radius meters of (lat, lng).  Results are ordered nearest first
// with ties broken by user id; distances are rounded to 0.1 m.
func (m *ProximityMatcher) FindCandidates(ctx context.Context, viewerID string, lat, lng, radius float64) ([]Candidate, error) {
	if !utils.ValidCoordinates(lat, lng) {
		return nil, invalid("lat/lng", "out of range")
	}
	radius, err := m.ResolveRadius(radius)
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()

	rows, err := m.store.ListEligible(ctx, repository.EligibleFilter{
		ExcludeUserID:   viewerID,
		ActivatedBefore: now.Add(-m.cfg.MinThreshold()),
		SeenSince:       now.Add(-m.cfg.PresenceExpiry),
		Bounds:          boundsAround(lat, lng, radius),
	})
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(rows))
	for _, p := range rows {
		if p.ActivatedAt == nil || p.ActivatedAt.After(now.Add(-m.cfg.Threshold(p.VenueType))) {
			continue
		}
		d := utils.HaversineMeters(lat, lng, p.Lat, p.Lng)
		if d > radius {
			continue
		}
		out = append(out, Candidate{UserID: p.UserID, Lat: p.Lat, Lng: p.Lng, DistanceM: utils.RoundTo(d, 1)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceM != out[j].DistanceM {
			return out[i].DistanceM < out[j].DistanceM
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// boundsAround returns a lat/lng box that contains the radius circle, or nil
// when the circle reaches a pole or crosses the antimeridian.
func boundsAround(lat, lng, radius float64) *repository.Bounds {
	dLat := radius / metersPerDegreeLat * 1.01
	if math.Abs(lat)+dLat >= 89 {
		return nil
	}
	dLng := dLat / math.Cos((math.Abs(lat)+dLat)*math.Pi/180)
	if lng-dLng < -180 || lng+dLng > 180 {
		return nil
	}
	return &repository.Bounds{
		MinLat: lat - dLat, MaxLat: lat + dLat,
		MinLng: lng - dLng, MaxLng: lng + dLng,
	}
}
