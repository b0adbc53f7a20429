package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/config"
	"github.com/iliyamo/tapin-reveal/internal/memstore"
)

func TestHandleMessageSkips(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	convs := memstore.NewConversations()
	_, _ = convs.Ensure(ctx, "known", alice, bob, time.Now())
	notes := &recordingNotifier{}
	svc := NewMessageService(convs, nil, notes, config.RevealOnDecision, discardLogger())

	cases := []struct {
		name string
		ev   MessageEvent
	}{
		{"missing ids", MessageEvent{ConversationID: "known"}},
		{"unknown conversation", MessageEvent{ConversationID: "nope", SenderID: alice}},
		{"self recipient", MessageEvent{ConversationID: "nope", SenderID: alice, RecipientID: alice}},
		{"outsider", MessageEvent{ConversationID: "known", SenderID: carol, Body: "hi"}},
	}
	for _, tc := range cases {
		res, err := svc.HandleMessage(ctx, tc.ev)
		if err != nil || res.Skipped == "" {
			t.Fatalf("%s: expected skip, got %+v %v", tc.name, res, err)
		}
	}
	if len(notes.Sent()) != 0 {
		t.Fatalf("skipped events must not notify")
	}
}

func TestHandleMessageNotifiesRecipient(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	convs := memstore.NewConversations()
	notes := &recordingNotifier{}
	svc := NewMessageService(convs, nil, notes, config.RevealOnDecision, discardLogger())

	long := strings.Repeat("é", 200)
	res, err := svc.HandleMessage(ctx, MessageEvent{ConversationID: "c", SenderID: bob, RecipientID: alice, Body: long})
	if err != nil || res.Skipped != "" || res.Notified != 1 || res.RevealReady {
		t.Fatalf("HandleMessage: %+v %v", res, err)
	}
	sent := notes.Sent()
	if len(sent) != 1 || sent[0].UserID != alice {
		t.Fatalf("expected alice notified, got %+v", sent)
	}
	if got := len([]rune(sent[0].Note.Body)); got != 120 {
		t.Fatalf("preview length: %d", got)
	}
	if sent[0].Note.Data["senderId"] != bob {
		t.Fatalf("data: %+v", sent[0].Note.Data)
	}
	if _, err := convs.Get(ctx, "c"); err != nil {
		t.Fatalf("conversation should be created from recipient_id: %v", err)
	}

	res, _ = svc.HandleMessage(ctx, MessageEvent{ConversationID: "c", SenderID: alice})
	if sent := notes.Sent(); res.Notified != 1 || sent[1].UserID != bob || sent[1].Note.Body != "New message" {
		t.Fatalf("reply: %+v %+v", res, sent)
	}
}

func TestHandleMessageSendersPolicySchedulesReveal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	convs := memstore.NewConversations()
	_, _ = convs.Ensure(ctx, "c", alice, bob, time.Now())
	sched := NewRevealScheduler(convs, nil, time.Hour, nil, discardLogger())
	defer sched.Stop()
	svc := NewMessageService(convs, sched, nil, config.RevealOnSenders, discardLogger())

	res, err := svc.HandleMessage(ctx, MessageEvent{ConversationID: "c", SenderID: alice, Body: "hey"})
	if err != nil || res.RevealReady || sched.Pending() != 0 {
		t.Fatalf("first sender: %+v %v pending=%d", res, err, sched.Pending())
	}
	res, err = svc.HandleMessage(ctx, MessageEvent{ConversationID: "c", SenderID: bob, Body: "hi"})
	if err != nil || !res.RevealReady || sched.Pending() != 1 {
		t.Fatalf("second sender: %+v %v pending=%d", res, err, sched.Pending())
	}
	if res.Notified != 0 {
		t.Fatalf("no notifier configured, got Notified=%d", res.Notified)
	}

	// The reveal itself waits for the settle timer.
	c, _ := convs.Get(ctx, "c")
	if c.RevealedAt != nil {
		t.Fatalf("reveal must wait for the settle delay")
	}
}

func TestHandleMessageDecisionPolicyReportsReveal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	convs := memstore.NewConversations()
	_, _ = convs.Ensure(ctx, "c", alice, bob, time.Now())
	_, _ = convs.MarkRevealed(ctx, "c", time.Now())
	svc := NewMessageService(convs, nil, nil, config.RevealOnDecision, discardLogger())

	res, err := svc.HandleMessage(ctx, MessageEvent{ConversationID: "c", SenderID: alice})
	if err != nil || !res.RevealReady {
		t.Fatalf("%+v %v", res, err)
	}
	if n, _ := convs.CountSenders(ctx, "c"); n != 1 {
		t.Fatalf("sender not recorded: %d", n)
	}
}
