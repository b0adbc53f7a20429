// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair for the outbound push queue.
package queue

import (
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/tapin-reveal/internal/push"
)

// PushQueueName is the durable queue carrying outbound push batches.
const PushQueueName = "push.outbound"

// PushEvent is one batch of Expo messages for a single recipient.  The
// consumer delivers it without touching the primary database.
type PushEvent struct {
    ID        string         `json:"id"`
    UserID    string         `json:"user_id"`
    Kind      string         `json:"kind"` // chat_message, match, reveal
    Messages  []push.Message `json:"messages"`
    CreatedAt string         `json:"created_at"`
}

// NewPushEvent stamps a batch with a fresh id and creation time.
func NewPushEvent(userID, kind string, msgs []push.Message) PushEvent {
    return PushEvent{
        ID:        uuid.NewString(),
        UserID:    userID,
        Kind:      kind,
        Messages:  msgs,
        CreatedAt: time.Now().UTC().Format(time.RFC3339),
    }
}
