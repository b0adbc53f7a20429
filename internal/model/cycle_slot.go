package model

import "time"

// Slot statuses stored in daily_cycle_slot.status.
const (
	SlotActive = "active"
	SlotPassed = "passed"
	SlotMeet   = "meet"
)

// MaxDailySlots is the hard cap of targets a viewer is shown per day.
const MaxDailySlots = 3

// CycleSlot models a row in `daily_cycle_slot`.  A viewer owns at most
// MaxDailySlots rows per DayKey and a target never occupies two slots of the
// same day.
type CycleSlot struct {
	ViewerID       string    // daily_cycle_slot.viewer_id
	DayKey         string    // daily_cycle_slot.day_key, formatted 2006-01-02
	Slot           int       // daily_cycle_slot.slot (1..3)
	TargetID       string    // daily_cycle_slot.target_id
	ConversationID string    // daily_cycle_slot.conversation_id (nullable)
	Status         string    // daily_cycle_slot.status
	CreatedAt      time.Time // daily_cycle_slot.created_at
	UpdatedAt      time.Time // daily_cycle_slot.updated_at
}
