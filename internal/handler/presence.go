package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/service"
)

// PresenceHandler serves the heartbeat and nearby endpoints.
type PresenceHandler struct {
	Presence *service.PresenceService
	Matcher  *service.ProximityMatcher
	Cycle    *service.CycleAllocator
	Metrics  *metrics.Metrics
}

func NewPresenceHandler(p *service.PresenceService, m *service.ProximityMatcher, cy *service.CycleAllocator, mx *metrics.Metrics) *PresenceHandler {
	if p == nil || m == nil || cy == nil {
		panic("nil service passed to NewPresenceHandler")
	}
	return &PresenceHandler{Presence: p, Matcher: m, Cycle: cy, Metrics: mx}
}

type heartbeatRequest struct {
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	VenueType    string   `json:"venue_type"`
	IsStationary *bool    `json:"is_stationary"`
}

// Heartbeat handles POST /v1/presence/heartbeat.  is_stationary defaults to
// true when omitted.
func (h *PresenceHandler) Heartbeat(c echo.Context) error {
	uid, ok, err := callerID(c)
	if !ok {
		return err
	}
	var body heartbeatRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Lat == nil || body.Lng == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat and lng are required"})
	}
	stationary := true
	if body.IsStationary != nil {
		stationary = *body.IsStationary
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Presence.Heartbeat(ctx, service.HeartbeatRequest{
		UserID:       uid,
		Lat:          *body.Lat,
		Lng:          *body.Lng,
		IsStationary: stationary,
		VenueType:    body.VenueType,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":       "ok",
		"last_seen_at": p.LastSeenAt.UTC().Format(time.RFC3339),
	})
}

type nearbyRequest struct {
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	RadiusM float64  `json:"radius_m"`
}

type nearbyUser struct {
	UserID         string  `json:"user_id"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	DistanceMeters float64 `json:"distance_meters"`
	Slot           int     `json:"slot"`
	Fresh          bool    `json:"fresh"`
}

// Nearby handles POST /v1/presence/nearby.  It returns at most three users:
// today's slotted targets still in range, then fresh ones nearest first.
func (h *PresenceHandler) Nearby(c echo.Context) error {
	uid, ok, err := callerID(c)
	if !ok {
		return err
	}
	var body nearbyRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Lat == nil || body.Lng == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat and lng are required"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	cands, err := h.Matcher.FindCandidates(ctx, uid, *body.Lat, *body.Lng, body.RadiusM)
	if err != nil {
		return respondError(c, err)
	}
	day := h.Cycle.Today()
	resolved, err := h.Cycle.ResolveNearby(ctx, uid, day, cands)
	if err != nil {
		return respondError(c, err)
	}

	users := make([]nearbyUser, 0, len(resolved))
	for _, r := range resolved {
		users = append(users, nearbyUser{
			UserID:         r.UserID,
			Lat:            r.Lat,
			Lng:            r.Lng,
			DistanceMeters: r.DistanceM,
			Slot:           r.Slot,
			Fresh:          r.Fresh,
		})
	}
	h.Metrics.NearbyReturned(len(users))
	return c.JSON(http.StatusOK, echo.Map{"users": users, "day_key": day})
}
