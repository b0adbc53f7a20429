package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/memstore"
	"github.com/iliyamo/tapin-reveal/internal/model"
)

func TestEnsureSlotFillsLowestAndIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := f.today()

	for i, target := range []string{bob, carol, dave} {
		s, err := f.cycle.EnsureSlot(ctx, alice, day, target, "")
		if err != nil {
			t.Fatalf("EnsureSlot(%s): %v", target, err)
		}
		if s.Slot != i+1 || s.Status != model.SlotActive {
			t.Fatalf("target %s got slot %d status %s", target, s.Slot, s.Status)
		}
	}

	again, err := f.cycle.EnsureSlot(ctx, alice, day, carol, "")
	if err != nil || again.Slot != 2 {
		t.Fatalf("repeat EnsureSlot: slot=%d err=%v", again.Slot, err)
	}

	_, err = f.cycle.EnsureSlot(ctx, alice, day, erin, "")
	var full *CycleFullError
	if !errors.As(err, &full) || !errors.Is(err, ErrCycleFull) {
		t.Fatalf("expected CycleFullError, got %v", err)
	}
	if full.RetryAfter != 12*time.Hour {
		t.Fatalf("retry after: %v", full.RetryAfter)
	}

	// A new day starts a fresh cycle.
	next := f.cycle.DayKey(f.clock.Now().Add(24 * time.Hour))
	s, err := f.cycle.EnsureSlot(ctx, alice, next, erin, "")
	if err != nil || s.Slot != 1 {
		t.Fatalf("next day: %+v %v", s, err)
	}
}

func TestEnsureSlotConversationIDRule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := f.today()

	if _, err := f.cycle.EnsureSlot(ctx, alice, day, bob, ""); err != nil {
		t.Fatalf("EnsureSlot: %v", err)
	}
	s, err := f.cycle.EnsureSlot(ctx, alice, day, bob, "conv-1")
	if err != nil || s.ConversationID != "conv-1" {
		t.Fatalf("empty slot should adopt conv-1: %+v %v", s, err)
	}
	s, err = f.cycle.EnsureSlot(ctx, alice, day, bob, "conv-2")
	if err != nil || s.ConversationID != "conv-1" {
		t.Fatalf("first conversation id should win: %+v %v", s, err)
	}
}

func TestEnsureSlotRejectsSelf(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.cycle.EnsureSlot(context.Background(), alice, f.today(), alice, "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEnsureSlotConcurrentCallers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := f.today()

	targets := make([]string, 8)
	for i := range targets {
		targets[i] = fmt.Sprintf("target-%02d", i)
	}

	var wg sync.WaitGroup
	for _, target := range targets {
		for n := 0; n < 3; n++ {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				_, _ = f.cycle.EnsureSlot(ctx, alice, day, target, "")
			}(target)
		}
	}
	wg.Wait()

	slots, err := f.cycle.Slots(ctx, alice, day)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(slots) != model.MaxDailySlots {
		t.Fatalf("expected %d slots, got %d", model.MaxDailySlots, len(slots))
	}
	seen := map[string]bool{}
	for i, s := range slots {
		if s.Slot != i+1 {
			t.Fatalf("slots not contiguous: %+v", slots)
		}
		if seen[s.TargetID] {
			t.Fatalf("target %s holds two slots", s.TargetID)
		}
		seen[s.TargetID] = true
	}
}

func TestResolveNearbyFullCycleReturnsOnlySlotted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := f.today()
	for _, target := range []string{bob, carol, dave} {
		if _, err := f.cycle.EnsureSlot(ctx, alice, day, target, ""); err != nil {
			t.Fatalf("EnsureSlot: %v", err)
		}
	}

	candidates := []Candidate{
		{UserID: erin, DistanceM: 10},
		{UserID: dave, DistanceM: 40},
		{UserID: bob, DistanceM: 90},
	}
	got, err := f.cycle.ResolveNearby(ctx, alice, day, candidates)
	if err != nil {
		t.Fatalf("ResolveNearby: %v", err)
	}
	if len(got) != 2 || got[0].UserID != bob || got[0].Slot != 1 || got[1].UserID != dave || got[1].Slot != 3 {
		t.Fatalf("expected bob(1), dave(3); got %+v", got)
	}
	for _, r := range got {
		if r.Fresh {
			t.Fatalf("slotted entries must not be fresh: %+v", r)
		}
	}
	if slots, _ := f.cycle.Slots(ctx, alice, day); len(slots) != 3 {
		t.Fatalf("no slot may be created when full, have %d", len(slots))
	}
}

func TestResolveNearbyFillsNearestUnblocked(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := f.today()

	if _, err := f.cycle.EnsureSlot(ctx, alice, day, erin, ""); err != nil {
		t.Fatalf("EnsureSlot: %v", err)
	}
	if err := f.blocklist.Block(ctx, carol, alice, model.BlockReasonPassed, ""); err != nil {
		t.Fatalf("Block: %v", err)
	}

	candidates := []Candidate{
		{UserID: carol, DistanceM: 5},
		{UserID: bob, DistanceM: 20},
		{UserID: erin, DistanceM: 30},
		{UserID: dave, DistanceM: 50},
		{UserID: "f0000000-0000-4000-8000-000000000006", DistanceM: 60},
	}
	got, err := f.cycle.ResolveNearby(ctx, alice, day, candidates)
	if err != nil {
		t.Fatalf("ResolveNearby: %v", err)
	}
	want := []struct {
		user  string
		slot  int
		fresh bool
	}{
		{erin, 1, false},
		{bob, 2, true},
		{dave, 3, true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i, w := range want {
		if got[i].UserID != w.user || got[i].Slot != w.slot || got[i].Fresh != w.fresh {
			t.Fatalf("entry %d: got %+v want %+v", i, got[i], w)
		}
	}

	// Second call is stable and allocates nothing new.
	again, _ := f.cycle.ResolveNearby(ctx, alice, day, candidates)
	if len(again) != 3 || again[1].Fresh || again[2].Fresh {
		t.Fatalf("second resolve: %+v", again)
	}
}

func TestResolveNearbyKeepsBlockedSlotForTheDay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := f.today()

	got, err := f.cycle.ResolveNearby(ctx, alice, day, []Candidate{{UserID: bob, DistanceM: 11}})
	if err != nil || len(got) != 1 || got[0].Slot != 1 || !got[0].Fresh {
		t.Fatalf("first resolve: %+v %v", got, err)
	}

	decide(t, f, "conv", alice, bob, model.DecisionMeet)
	if out := decide(t, f, "conv", bob, alice, model.DecisionPass); out.Status != OutcomeSearchNext {
		t.Fatalf("bob pass: %+v", out)
	}
	if blocked, _ := f.blocklist.IsBlocked(ctx, alice, bob); !blocked {
		t.Fatalf("pair should be blocked")
	}

	// Same day: bob keeps slot 1 and carol fills the next one.
	got, err = f.cycle.ResolveNearby(ctx, alice, day, []Candidate{
		{UserID: carol, DistanceM: 5},
		{UserID: bob, DistanceM: 11},
	})
	if err != nil {
		t.Fatalf("ResolveNearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].UserID != bob || got[0].Slot != 1 || got[0].Fresh {
		t.Fatalf("bob should stay in slot 1: %+v", got[0])
	}
	if got[1].UserID != carol || got[1].Slot != 2 || !got[1].Fresh {
		t.Fatalf("carol should be fresh in slot 2: %+v", got[1])
	}
}

// staleCycles runs race once, right after the first slot listing, to mimic
// a concurrent request landing between the snapshot and the insert.
type staleCycles struct {
	*memstore.Cycles
	once sync.Once
	race func()
}

func (s *staleCycles) ListByViewerDay(ctx context.Context, viewerID, dayKey string) ([]model.CycleSlot, error) {
	out, err := s.Cycles.ListByViewerDay(ctx, viewerID, dayKey)
	s.once.Do(s.race)
	return out, err
}

func TestResolveNearbyConcurrentSlotIsNotFresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	day := f.today()

	store := &staleCycles{Cycles: memstore.NewCycles()}
	store.race = func() {
		_ = store.Cycles.Insert(ctx, model.CycleSlot{ViewerID: alice, DayKey: day, Slot: 1, TargetID: bob, Status: model.SlotActive})
	}
	alloc := NewCycleAllocator(store, f.blocklist, time.UTC, nil, discardLogger())
	alloc.now = f.clock.Now

	got, err := alloc.ResolveNearby(ctx, alice, day, []Candidate{
		{UserID: bob, DistanceM: 10},
		{UserID: carol, DistanceM: 20},
	})
	if err != nil {
		t.Fatalf("ResolveNearby: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].UserID != bob || got[0].Slot != 1 || got[0].Fresh {
		t.Fatalf("bob was slotted elsewhere and must not be fresh: %+v", got[0])
	}
	if got[1].UserID != carol || got[1].Slot != 2 || !got[1].Fresh {
		t.Fatalf("carol: %+v", got[1])
	}
}

func TestSetStatusValidates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.cycle.SetStatus(context.Background(), alice, f.today(), bob, "archived")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDayKeyUsesCycleTimezone(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := NewCycleAllocator(nil, nil, loc, nil, discardLogger())
	ts := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC) // 22:00 on Mar 1 in New York
	if got := a.DayKey(ts); got != "2026-03-01" {
		t.Fatalf("DayKey: %s", got)
	}
}
