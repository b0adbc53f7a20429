package service

import (
	"context"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/push"
	"github.com/iliyamo/tapin-reveal/internal/queue"
	"github.com/iliyamo/tapin-reveal/internal/repository"
)

// Store interfaces.  The MySQL repositories and the in-memory stores both
// satisfy them.

type PresenceStore interface {
	UpsertHeartbeat(ctx context.Context, in repository.HeartbeatInput) (model.Presence, error)
	Get(ctx context.Context, userID string) (model.Presence, error)
	ListEligible(ctx context.Context, f repository.EligibleFilter) ([]model.Presence, error)
}

type CycleStore interface {
	ListByViewerDay(ctx context.Context, viewerID, dayKey string) ([]model.CycleSlot, error)
	FindByTarget(ctx context.Context, viewerID, dayKey, targetID string) (model.CycleSlot, error)
	Insert(ctx context.Context, s model.CycleSlot) error
	SetConversationIfEmpty(ctx context.Context, viewerID, dayKey, targetID, conversationID string) error
	UpdateStatus(ctx context.Context, viewerID, dayKey, targetID, status string) error
}

type BlocklistStore interface {
	Get(ctx context.Context, low, high string) (model.BlocklistEntry, error)
	Upsert(ctx context.Context, e model.BlocklistEntry) error
}

type DecisionStore interface {
	Upsert(ctx context.Context, d model.RevealDecision) error
	Get(ctx context.Context, conversationID, userID string) (model.RevealDecision, error)
}

type ConversationStore interface {
	Ensure(ctx context.Context, id, userA, userB string, now time.Time) (model.Conversation, error)
	Get(ctx context.Context, id string) (model.Conversation, error)
	SetStatusIfOpen(ctx context.Context, id, status string) (bool, error)
	MarkRevealed(ctx context.Context, id string, at time.Time) (bool, error)
	RecordSender(ctx context.Context, conversationID, senderID string) error
	CountSenders(ctx context.Context, conversationID string) (int, error)
}

type PushTokenStore interface {
	Upsert(ctx context.Context, t model.PushToken) error
	ListByUser(ctx context.Context, userID string) ([]model.PushToken, error)
}

// BlockCache is an optional read-through cache for blocked pairs.
type BlockCache interface {
	Get(ctx context.Context, a, b string) (model.BlocklistEntry, bool, error)
	Set(ctx context.Context, e model.BlocklistEntry) error
}

// MediaStore resolves a user's primary photo.  ok is false when the user
// has none.
type MediaStore interface {
	PrimaryPhotoURL(ctx context.Context, userID string) (url string, ok bool, err error)
}

// PushSender delivers push messages directly.
type PushSender interface {
	Send(ctx context.Context, msgs []push.Message) ([]push.Ticket, error)
}

// PushPublisher hands push batches to the broker for asynchronous delivery.
type PushPublisher interface {
	PublishPush(ctx context.Context, ev queue.PushEvent) error
}

// Notifier sends a best-effort notification to every device of a user.
type Notifier interface {
	Notify(ctx context.Context, userID string, n Notification) error
}

// Notification is the device-independent content of a push.
type Notification struct {
	Kind  string // chat_message, match, reveal
	Title string
	Body  string
	Data  map[string]any
}
