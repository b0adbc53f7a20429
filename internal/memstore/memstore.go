// Package memstore holds in-memory implementations of every store the
// services use.  They back STORE_DRIVER=memory for local runs and the
// service and handler tests.  Semantics match the MySQL repositories,
// including unique-key violations reported as repository.ErrDuplicate.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/repository"
	"github.com/iliyamo/tapin-reveal/internal/utils"
)

// Presence is an in-memory presence table.
type Presence struct {
	mu   sync.Mutex
	rows map[string]model.Presence
}

func NewPresence() *Presence { return &Presence{rows: map[string]model.Presence{}} }

// Put stores p as-is; tests use it to seed rows with chosen timestamps.
func (s *Presence) Put(p model.Presence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[p.UserID] = p
}

func (s *Presence) UpsertHeartbeat(ctx context.Context, in repository.HeartbeatInput) (model.Presence, error) {
	if err := ctx.Err(); err != nil {
		return model.Presence{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := in.Now.UTC()
	var prev *model.Presence
	if p, ok := s.rows[in.UserID]; ok {
		prev = &p
	}
	p := model.Presence{
		UserID:       in.UserID,
		Lat:          in.Lat,
		Lng:          in.Lng,
		VenueType:    in.VenueType,
		IsStationary: in.IsStationary,
		Discoverable: true,
		ActivatedAt:  model.NextActivation(prev, in.IsStationary, now),
		LastSeenAt:   now,
	}
	if prev != nil {
		p.Discoverable = prev.Discoverable
	}
	s.rows[in.UserID] = p
	return p, nil
}

func (s *Presence) Get(_ context.Context, userID string) (model.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[userID]
	if !ok {
		return model.Presence{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Presence) ListEligible(_ context.Context, f repository.EligibleFilter) ([]model.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Presence
	for _, p := range s.rows {
		switch {
		case !p.Discoverable, p.UserID == f.ExcludeUserID, !p.IsStationary, p.ActivatedAt == nil:
			continue
		case p.ActivatedAt.After(f.ActivatedBefore), p.LastSeenAt.Before(f.SeenSince):
			continue
		}
		if b := f.Bounds; b != nil && (p.Lat < b.MinLat || p.Lat > b.MaxLat || p.Lng < b.MinLng || p.Lng > b.MaxLng) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// Cycles is an in-memory daily_cycle_slot table.
type Cycles struct {
	mu    sync.Mutex
	slots []model.CycleSlot
}

func NewCycles() *Cycles { return &Cycles{} }

func (s *Cycles) ListByViewerDay(_ context.Context, viewerID, dayKey string) ([]model.CycleSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CycleSlot
	for _, sl := range s.slots {
		if sl.ViewerID == viewerID && sl.DayKey == dayKey {
			out = append(out, sl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (s *Cycles) FindByTarget(_ context.Context, viewerID, dayKey, targetID string) (model.CycleSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(viewerID, dayKey, targetID); i >= 0 {
		return s.slots[i], nil
	}
	return model.CycleSlot{}, repository.ErrNotFound
}

func (s *Cycles) Insert(_ context.Context, in model.CycleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		if sl.ViewerID != in.ViewerID || sl.DayKey != in.DayKey {
			continue
		}
		if sl.Slot == in.Slot || sl.TargetID == in.TargetID {
			return repository.ErrDuplicate
		}
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
		in.UpdatedAt = in.CreatedAt
	}
	s.slots = append(s.slots, in)
	return nil
}

func (s *Cycles) SetConversationIfEmpty(_ context.Context, viewerID, dayKey, targetID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(viewerID, dayKey, targetID); i >= 0 && s.slots[i].ConversationID == "" {
		s.slots[i].ConversationID = conversationID
		s.slots[i].UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Cycles) UpdateStatus(_ context.Context, viewerID, dayKey, targetID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(viewerID, dayKey, targetID); i >= 0 {
		s.slots[i].Status = status
		s.slots[i].UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Cycles) indexLocked(viewerID, dayKey, targetID string) int {
	for i, sl := range s.slots {
		if sl.ViewerID == viewerID && sl.DayKey == dayKey && sl.TargetID == targetID {
			return i
		}
	}
	return -1
}

// Blocklist is an in-memory pair_blocklist table.
type Blocklist struct {
	mu   sync.Mutex
	rows map[string]model.BlocklistEntry
}

func NewBlocklist() *Blocklist { return &Blocklist{rows: map[string]model.BlocklistEntry{}} }

func (s *Blocklist) Get(_ context.Context, low, high string) (model.BlocklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rows[utils.PairKey(low, high)]
	if !ok {
		return model.BlocklistEntry{}, repository.ErrNotFound
	}
	return e, nil
}

func (s *Blocklist) Upsert(_ context.Context, e model.BlocklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := utils.PairKey(e.UserLow, e.UserHigh)
	if prev, ok := s.rows[k]; ok {
		prev.Reason = e.Reason
		if e.LastConversationID != "" {
			prev.LastConversationID = e.LastConversationID
		}
		prev.UpdatedAt = e.UpdatedAt
		s.rows[k] = prev
		return nil
	}
	s.rows[k] = e
	return nil
}

// Len is the number of blocked pairs.
func (s *Blocklist) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Decisions is an in-memory reveal_decision table.
type Decisions struct {
	mu   sync.Mutex
	rows map[[2]string]model.RevealDecision
}

func NewDecisions() *Decisions { return &Decisions{rows: map[[2]string]model.RevealDecision{}} }

func (s *Decisions) Upsert(_ context.Context, d model.RevealDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[[2]string{d.ConversationID, d.UserID}] = d
	return nil
}

func (s *Decisions) Get(_ context.Context, conversationID, userID string) (model.RevealDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.rows[[2]string{conversationID, userID}]
	if !ok {
		return model.RevealDecision{}, repository.ErrNotFound
	}
	return d, nil
}

// Conversations is an in-memory conversations + conversation_senders table.
type Conversations struct {
	mu      sync.Mutex
	rows    map[string]model.Conversation
	senders map[string]map[string]bool
}

func NewConversations() *Conversations {
	return &Conversations{rows: map[string]model.Conversation{}, senders: map[string]map[string]bool{}}
}

func (s *Conversations) Ensure(_ context.Context, id, userA, userB string, now time.Time) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.rows[id]; ok {
		return c, nil
	}
	low, high := utils.CanonicalPair(userA, userB)
	c := model.Conversation{ID: id, UserLow: low, UserHigh: high, Status: model.ConversationOpen, CreatedAt: now.UTC()}
	s.rows[id] = c
	return c, nil
}

func (s *Conversations) Get(_ context.Context, id string) (model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return model.Conversation{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *Conversations) SetStatusIfOpen(_ context.Context, id, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok || c.Status != model.ConversationOpen {
		return false, nil
	}
	c.Status = status
	s.rows[id] = c
	return true, nil
}

func (s *Conversations) MarkRevealed(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok || c.RevealedAt != nil {
		return false, nil
	}
	at = at.UTC()
	c.RevealedAt = &at
	s.rows[id] = c
	return true, nil
}

func (s *Conversations) RecordSender(_ context.Context, conversationID, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.senders[conversationID]
	if set == nil {
		set = map[string]bool{}
		s.senders[conversationID] = set
	}
	set[senderID] = true
	return nil
}

func (s *Conversations) CountSenders(_ context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.senders[conversationID]), nil
}

// PushTokens is an in-memory push_tokens table.
type PushTokens struct {
	mu   sync.Mutex
	rows []model.PushToken
}

func NewPushTokens() *PushTokens { return &PushTokens{} }

func (s *PushTokens) Upsert(_ context.Context, t model.PushToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}
	for i, r := range s.rows {
		if r.UserID != t.UserID {
			continue
		}
		if (t.DeviceID != "" && r.DeviceID == t.DeviceID) || r.Token == t.Token {
			s.rows[i].Token = t.Token
			s.rows[i].Platform = t.Platform
			s.rows[i].UpdatedAt = t.UpdatedAt
			return nil
		}
	}
	s.rows = append(s.rows, t)
	return nil
}

func (s *PushTokens) ListByUser(_ context.Context, userID string) ([]model.PushToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PushToken
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Media is an in-memory media_items lookup.
type Media struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewMedia() *Media { return &Media{keys: map[string]string{}} }

// SetPrimary records the primary photo object key for a user.
func (s *Media) SetPrimary(userID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[userID] = key
}

func (s *Media) PrimaryObjectKey(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return k, nil
}
