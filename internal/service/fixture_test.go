package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/config"
	"github.com/iliyamo/tapin-reveal/internal/memstore"
	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/storage"
)

// Fixed UUID-shaped ids; lexical order is alice < bob < carol < dave < erin.
const (
	alice = "a0000000-0000-4000-8000-000000000001"
	bob   = "b0000000-0000-4000-8000-000000000002"
	carol = "c0000000-0000-4000-8000-000000000003"
	dave  = "d0000000-0000-4000-8000-000000000004"
	erin  = "e0000000-0000-4000-8000-000000000005"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentNote struct {
	UserID string
	Note   Notification
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNote
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, userID string, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNote{UserID: userID, Note: n})
	return r.err
}

func (r *recordingNotifier) Sent() []sentNote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentNote(nil), r.sent...)
}

type fixture struct {
	clock    *clock
	cfg      config.MatchConfig
	presence *memstore.Presence
	cycles   *memstore.Cycles
	blocks   *memstore.Blocklist
	decs     *memstore.Decisions
	convs    *memstore.Conversations
	media    *memstore.Media
	notifier *recordingNotifier

	presenceSvc *PresenceService
	matcher     *ProximityMatcher
	blocklist   *BlocklistManager
	cycle       *CycleAllocator
	reveal      *RevealCoordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, config.DefaultMatchConfig())
}

func newFixtureWithConfig(t *testing.T, cfg config.MatchConfig) *fixture {
	t.Helper()
	f := &fixture{
		clock:    &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		cfg:      cfg,
		presence: memstore.NewPresence(),
		cycles:   memstore.NewCycles(),
		blocks:   memstore.NewBlocklist(),
		decs:     memstore.NewDecisions(),
		convs:    memstore.NewConversations(),
		media:    memstore.NewMedia(),
		notifier: &recordingNotifier{},
	}
	log := discardLogger()

	f.presenceSvc = NewPresenceService(f.presence, nil)
	f.presenceSvc.now = f.clock.Now
	f.matcher = NewProximityMatcher(f.presence, cfg)
	f.matcher.now = f.clock.Now
	f.blocklist = NewBlocklistManager(f.blocks, nil, log)
	f.blocklist.now = f.clock.Now
	f.cycle = NewCycleAllocator(f.cycles, f.blocklist, cfg.Location, nil, log)
	f.cycle.now = f.clock.Now
	f.reveal = NewRevealCoordinator(RevealDeps{
		Decisions: f.decs,
		Convs:     f.convs,
		Cycle:     f.cycle,
		Blocks:    f.blocklist,
		Media:     storage.NewPhotoResolver(f.media, storage.PublicURLs{Base: "https://cdn.test/"}),
		Notifier:  f.notifier,
		Policy:    cfg.RevealPolicy,
		Logger:    log,
	})
	f.reveal.now = f.clock.Now
	return f
}

func (f *fixture) today() string { return f.cycle.Today() }

// seat places userID as a stationary, discoverable user activated dwell ago.
func (f *fixture) seat(userID string, lat, lng float64, dwell time.Duration, venue string) {
	now := f.clock.Now()
	at := now.Add(-dwell)
	f.presence.Put(model.Presence{
		UserID:       userID,
		Lat:          lat,
		Lng:          lng,
		VenueType:    venue,
		IsStationary: true,
		Discoverable: true,
		ActivatedAt:  &at,
		LastSeenAt:   now,
	})
}
