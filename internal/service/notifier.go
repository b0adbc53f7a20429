package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/push"
	"github.com/iliyamo/tapin-reveal/internal/queue"
)

// ErrNoDelivery is returned when neither a broker nor a direct sender is
// configured.
var ErrNoDelivery = errors.New("no push delivery configured")

// PushNotifier fans a notification out to every registered device of a
// user.  Batches go through the broker when one is configured and fall back
// to direct delivery if publishing fails.
type PushNotifier struct {
	tokens    PushTokenStore
	publisher PushPublisher
	sender    PushSender
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewPushNotifier accepts a nil publisher or a nil sender, not both.
func NewPushNotifier(tokens PushTokenStore, publisher PushPublisher, sender PushSender, m *metrics.Metrics, logger *slog.Logger) *PushNotifier {
	return &PushNotifier{tokens: tokens, publisher: publisher, sender: sender, metrics: m, logger: logger}
}

// RegisterToken stores an Expo token for a user's device.
func (n *PushNotifier) RegisterToken(ctx context.Context, userID, token, platform, deviceID string) error {
	token = strings.TrimSpace(token)
	if userID == "" {
		return invalid("user_id", "required")
	}
	if !push.IsExpoToken(token) {
		return invalid("expo_push_token", "Invalid Expo push token")
	}
	return n.tokens.Upsert(ctx, model.PushToken{
		UserID:    userID,
		Token:     token,
		Platform:  strings.ToLower(strings.TrimSpace(platform)),
		DeviceID:  strings.TrimSpace(deviceID),
		UpdatedAt: time.Now().UTC(),
	})
}

// Notify implements Notifier.  A user without tokens is not an error.
func (n *PushNotifier) Notify(ctx context.Context, userID string, note Notification) error {
	tokens, err := n.tokens.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	msgs := make([]push.Message, 0, len(tokens))
	for _, t := range tokens {
		if !push.IsExpoToken(t.Token) {
			continue
		}
		msgs = append(msgs, push.Message{
			To:       t.Token,
			Title:    note.Title,
			Body:     note.Body,
			Sound:    "default",
			Data:     note.Data,
			Priority: "high",
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	if n.publisher != nil {
		err := n.publisher.PublishPush(ctx, queue.NewPushEvent(userID, note.Kind, msgs))
		if err == nil {
			n.metrics.Push("queued")
			return nil
		}
		n.logger.Warn("push.enqueue.fail", "user_id", userID, "err", err)
	}
	if n.sender == nil {
		n.metrics.Push("failed")
		return ErrNoDelivery
	}
	if _, err := n.sender.Send(ctx, msgs); err != nil {
		n.metrics.Push("failed")
		return &UpstreamError{Service: "expo", Err: err}
	}
	n.metrics.Push("sent")
	return nil
}
