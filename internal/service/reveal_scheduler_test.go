package service

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/memstore"
)

func twoSenderConversation(t *testing.T, id string) *memstore.Conversations {
	t.Helper()
	ctx := context.Background()
	convs := memstore.NewConversations()
	if _, err := convs.Ensure(ctx, id, alice, bob, time.Now()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	_ = convs.RecordSender(ctx, id, alice)
	_ = convs.RecordSender(ctx, id, bob)
	return convs
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRevealSchedulerDebounces(t *testing.T) {
	t.Parallel()

	convs := twoSenderConversation(t, "conv")
	notes := &recordingNotifier{}
	s := NewRevealScheduler(convs, notes, 20*time.Millisecond, nil, discardLogger())
	defer s.Stop()

	for i := 0; i < 5; i++ {
		s.Schedule("conv")
	}
	if n := s.Pending(); n != 1 {
		t.Fatalf("pending: got %d want 1", n)
	}

	waitFor(t, "reveal", func() bool {
		c, _ := convs.Get(context.Background(), "conv")
		return c.RevealedAt != nil
	})
	waitFor(t, "timer cleanup", func() bool { return s.Pending() == 0 })

	s.Stop()
	sent := notes.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected one reveal notification per participant, got %d", len(sent))
	}
	for _, n := range sent {
		if n.Note.Kind != "reveal" || n.Note.Data["conversationId"] != "conv" {
			t.Fatalf("unexpected notification: %+v", n)
		}
	}
}

func TestRevealSchedulerStopCancelsPending(t *testing.T) {
	t.Parallel()

	convs := twoSenderConversation(t, "conv")
	s := NewRevealScheduler(convs, nil, time.Hour, nil, discardLogger())
	s.Schedule("conv")
	s.Stop()

	if n := s.Pending(); n != 0 {
		t.Fatalf("pending after Stop: %d", n)
	}
	s.Schedule("conv")
	if n := s.Pending(); n != 0 {
		t.Fatalf("Schedule after Stop armed a timer")
	}
	c, _ := convs.Get(context.Background(), "conv")
	if c.RevealedAt != nil {
		t.Fatalf("cancelled check must not reveal")
	}
}

func TestRevealSchedulerCheckNow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	convs := memstore.NewConversations()
	_, _ = convs.Ensure(ctx, "conv", alice, bob, time.Now())
	s := NewRevealScheduler(convs, nil, time.Second, nil, discardLogger())

	_ = convs.RecordSender(ctx, "conv", alice)
	_ = convs.RecordSender(ctx, "conv", alice)
	if ok, err := s.CheckNow(ctx, "conv"); ok || err != nil {
		t.Fatalf("one sender: ok=%v err=%v", ok, err)
	}

	_ = convs.RecordSender(ctx, "conv", bob)
	if ok, err := s.CheckNow(ctx, "conv"); !ok || err != nil {
		t.Fatalf("two senders: ok=%v err=%v", ok, err)
	}
	if ok, err := s.CheckNow(ctx, "conv"); ok || err != nil {
		t.Fatalf("already revealed: ok=%v err=%v", ok, err)
	}
	if _, err := s.CheckNow(ctx, "missing"); err == nil {
		t.Fatalf("expected an error for an unknown conversation")
	}
}
