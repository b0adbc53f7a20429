package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/config"
	"github.com/iliyamo/tapin-reveal/internal/push"
)

// MessageEvent is a chat message reported by the messaging backend's
// webhook.  RecipientID is optional when the conversation is already known.
type MessageEvent struct {
	ConversationID string
	SenderID       string
	RecipientID    string
	Body           string
}

// MessageResult describes what the webhook did with an event.
type MessageResult struct {
	Skipped     string // non-empty when the event was ignored, with the reason
	Notified    int    // recipients notified
	RevealReady bool
}

// MessageService handles inbound chat message events: it records senders
// for the reveal gate and forwards a push to the other participant.
type MessageService struct {
	convs     ConversationStore
	scheduler *RevealScheduler
	notifier  Notifier
	policy    string
	logger    *slog.Logger
	now       func() time.Time
}

func NewMessageService(convs ConversationStore, scheduler *RevealScheduler, notifier Notifier, policy string, logger *slog.Logger) *MessageService {
	return &MessageService{convs: convs, scheduler: scheduler, notifier: notifier, policy: policy, logger: logger, now: time.Now}
}

// HandleMessage processes one message event.
func (s *MessageService) HandleMessage(ctx context.Context, ev MessageEvent) (MessageResult, error) {
	if ev.ConversationID == "" || ev.SenderID == "" {
		return MessageResult{Skipped: "missing conversation_id/sender_id"}, nil
	}

	conv, err := s.convs.Get(ctx, ev.ConversationID)
	switch {
	case errors.Is(err, ErrNotFound):
		if ev.RecipientID == "" || ev.RecipientID == ev.SenderID {
			return MessageResult{Skipped: "unknown conversation"}, nil
		}
		conv, err = s.convs.Ensure(ctx, ev.ConversationID, ev.SenderID, ev.RecipientID, s.now())
		if err != nil {
			return MessageResult{}, err
		}
	case err != nil:
		return MessageResult{}, err
	}
	if !conv.HasParticipant(ev.SenderID) {
		return MessageResult{Skipped: "sender is not a participant"}, nil
	}

	if err := s.convs.RecordSender(ctx, ev.ConversationID, ev.SenderID); err != nil {
		return MessageResult{}, err
	}

	res := MessageResult{RevealReady: conv.RevealedAt != nil}
	if !res.RevealReady && s.policy == config.RevealOnSenders {
		n, err := s.convs.CountSenders(ctx, ev.ConversationID)
		if err != nil {
			return MessageResult{}, err
		}
		if n >= minRevealSenders {
			res.RevealReady = true
			if s.scheduler != nil {
				s.scheduler.Schedule(ev.ConversationID)
			}
		}
	}

	target := conv.Other(ev.SenderID)
	if s.notifier != nil {
		err := s.notifier.Notify(ctx, target, Notification{
			Kind:  "chat_message",
			Title: "TapIn",
			Body:  push.Preview(ev.Body, "New message"),
			Data: map[string]any{
				"type":           "chat_message",
				"conversationId": ev.ConversationID,
				"senderId":       ev.SenderID,
				"revealReady":    res.RevealReady,
			},
		})
		if err != nil {
			s.logger.Warn("push.chat.fail", "user_id", target, "err", err)
		} else {
			res.Notified = 1
		}
	}
	return res, nil
}
