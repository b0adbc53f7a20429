package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/repository"
)

// slotInsertAttempts bounds retries when concurrent allocators collide on
// the slot unique keys.
const slotInsertAttempts = 3

// CycleAllocator hands out each viewer's daily slots.  A viewer gets at most
// model.MaxDailySlots distinct targets per day key, slots are filled in
// ascending order and a target keeps its slot for the whole day.
type CycleAllocator struct {
	store   CycleStore
	blocks  *BlocklistManager
	loc     *time.Location
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewCycleAllocator(store CycleStore, blocks *BlocklistManager, loc *time.Location, m *metrics.Metrics, logger *slog.Logger) *CycleAllocator {
	if loc == nil {
		loc = time.UTC
	}
	return &CycleAllocator{store: store, blocks: blocks, loc: loc, metrics: m, logger: logger, now: time.Now}
}

// DayKey is the calendar date of t in the cycle time zone.
func (a *CycleAllocator) DayKey(t time.Time) string {
	return t.In(a.loc).Format("2006-01-02")
}

// Today is the day key for the current time.
func (a *CycleAllocator) Today() string { return a.DayKey(a.now()) }

// untilNextDay is the wait until the cycle resets.
func (a *CycleAllocator) untilNextDay() time.Duration {
	now := a.now().In(a.loc)
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, a.loc)
	return next.Sub(now)
}

// Slots returns the viewer's slots for dayKey in slot order.
func (a *CycleAllocator) Slots(ctx context.Context, viewerID, dayKey string) ([]model.CycleSlot, error) {
	return a.store.ListByViewerDay(ctx, viewerID, dayKey)
}

// EnsureSlot returns the slot targetID holds for the viewer's day, creating
// it in the lowest free position when needed.  Repeated calls return the
// same slot.  The first non-empty conversation id recorded for a slot wins.
// A new target when every slot is taken yields *CycleFullError.
func (a *CycleAllocator) EnsureSlot(ctx context.Context, viewerID, dayKey, targetID, conversationID string) (model.CycleSlot, error) {
	s, _, err := a.ensureSlot(ctx, viewerID, dayKey, targetID, conversationID)
	return s, err
}

// ensureSlot is EnsureSlot that also reports whether this call inserted the row.
func (a *CycleAllocator) ensureSlot(ctx context.Context, viewerID, dayKey, targetID, conversationID string) (model.CycleSlot, bool, error) {
	if viewerID == "" || targetID == "" {
		return model.CycleSlot{}, false, invalid("user_id", "required")
	}
	if viewerID == targetID {
		return model.CycleSlot{}, false, invalid("target_id", "must differ from viewer")
	}

	for attempt := 1; ; attempt++ {
		existing, err := a.store.FindByTarget(ctx, viewerID, dayKey, targetID)
		if err == nil {
			s, err := a.adoptConversation(ctx, existing, conversationID)
			return s, false, err
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.CycleSlot{}, false, err
		}

		slots, err := a.store.ListByViewerDay(ctx, viewerID, dayKey)
		if err != nil {
			return model.CycleSlot{}, false, err
		}
		next := lowestFreeSlot(slots)
		if next == 0 {
			a.metrics.CycleFull()
			return model.CycleSlot{}, false, &CycleFullError{DayKey: dayKey, RetryAfter: a.untilNextDay()}
		}

		now := a.now().UTC()
		s := model.CycleSlot{
			ViewerID:       viewerID,
			DayKey:         dayKey,
			Slot:           next,
			TargetID:       targetID,
			ConversationID: conversationID,
			Status:         model.SlotActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = a.store.Insert(ctx, s)
		if err == nil {
			return s, true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return model.CycleSlot{}, false, err
		}
		if attempt >= slotInsertAttempts {
			return model.CycleSlot{}, false, fmt.Errorf("allocate slot: contention after %d attempts: %w", attempt, err)
		}
		a.logger.Debug("cycle.slot.retry", "viewer_id", viewerID, "day_key", dayKey, "attempt", attempt)
	}
}

func (a *CycleAllocator) adoptConversation(ctx context.Context, s model.CycleSlot, conversationID string) (model.CycleSlot, error) {
	if s.ConversationID != "" || conversationID == "" {
		return s, nil
	}
	if err := a.store.SetConversationIfEmpty(ctx, s.ViewerID, s.DayKey, s.TargetID, conversationID); err != nil {
		return model.CycleSlot{}, err
	}
	// Re-read: a concurrent caller may have recorded a different id first.
	return a.store.FindByTarget(ctx, s.ViewerID, s.DayKey, s.TargetID)
}

// lowestFreeSlot returns the smallest unused slot number, or 0 when full.
func lowestFreeSlot(slots []model.CycleSlot) int {
	used := make(map[int]bool, len(slots))
	for _, s := range slots {
		used[s.Slot] = true
	}
	for n := 1; n <= model.MaxDailySlots; n++ {
		if !used[n] {
			return n
		}
	}
	return 0
}

// SetStatus updates the status of the slot held by targetID.
func (a *CycleAllocator) SetStatus(ctx context.Context, viewerID, dayKey, targetID, status string) error {
	switch status {
	case model.SlotActive, model.SlotPassed, model.SlotMeet:
	default:
		return invalid("status", "unknown slot status")
	}
	return a.store.UpdateStatus(ctx, viewerID, dayKey, targetID, status)
}

// Resolved is a candidate annotated with its slot.  Fresh is true when the
// slot was allocated by this call.
type Resolved struct {
	Candidate
	Slot  int
	Fresh bool
}

// ResolveNearby turns raw candidates into the viewer's daily view.  Targets
// already slotted today and still in range come first in slot order.  When
// slots remain, the nearest unslotted, unblocked candidates fill them.
func (a *CycleAllocator) ResolveNearby(ctx context.Context, viewerID, dayKey string, candidates []Candidate) ([]Resolved, error) {
	slots, err := a.store.ListByViewerDay(ctx, viewerID, dayKey)
	if err != nil {
		return nil, err
	}

	inRange := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		inRange[c.UserID] = c
	}
	slotted := make(map[string]bool, len(slots))
	out := make([]Resolved, 0, model.MaxDailySlots)
	for _, s := range slots {
		slotted[s.TargetID] = true
		if c, ok := inRange[s.TargetID]; ok {
			out = append(out, Resolved{Candidate: c, Slot: s.Slot})
		}
	}

	free := model.MaxDailySlots - len(slots)
	for _, c := range candidates {
		if free <= 0 {
			break
		}
		if slotted[c.UserID] || c.UserID == viewerID {
			continue
		}
		blocked, err := a.blocks.IsBlocked(ctx, viewerID, c.UserID)
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}
		s, created, err := a.ensureSlot(ctx, viewerID, dayKey, c.UserID, "")
		var full *CycleFullError
		if errors.As(err, &full) {
			break
		}
		if err != nil {
			return nil, err
		}
		slotted[c.UserID] = true
		// A concurrent request may have slotted c after our snapshot; it
		// still uses up a slot but is not fresh.
		out = append(out, Resolved{Candidate: c, Slot: s.Slot, Fresh: created})
		free--
	}
	return out, nil
}
