package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/config"
	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/model"
)

// minRevealSenders is how many distinct people must have written before a
// conversation reveals under the senders policy.
const minRevealSenders = 2

// RevealScheduler debounces the two-sender reveal check.  Each Schedule call
// for a conversation restarts its timer; when a timer fires the sender count
// is read and revealed_at is set once.  Nothing is held while waiting.
type RevealScheduler struct {
	convs    ConversationStore
	notifier Notifier
	delay    time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	gen     uint64
	pending map[string]pendingReveal
	stopped bool
	wg      sync.WaitGroup
}

type pendingReveal struct {
	timer *time.Timer
	gen   uint64
}

func NewRevealScheduler(convs ConversationStore, notifier Notifier, delay time.Duration, m *metrics.Metrics, logger *slog.Logger) *RevealScheduler {
	return &RevealScheduler{
		convs:    convs,
		notifier: notifier,
		delay:    delay,
		metrics:  m,
		logger:   logger,
		pending:  map[string]pendingReveal{},
	}
}

// Schedule arms or re-arms the check for conversationID.
func (s *RevealScheduler) Schedule(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if p, ok := s.pending[conversationID]; ok {
		if p.timer.Stop() {
			s.wg.Done()
		}
	}
	s.gen++
	g := s.gen
	s.wg.Add(1)
	s.pending[conversationID] = pendingReveal{
		gen: g,
		timer: time.AfterFunc(s.delay, func() {
			defer s.wg.Done()
			s.fire(conversationID, g)
		}),
	}
}

// Pending is the number of armed timers.
func (s *RevealScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every armed timer and waits for checks already running.
func (s *RevealScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, p := range s.pending {
		if p.timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *RevealScheduler) fire(conversationID string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[conversationID]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, conversationID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.CheckNow(ctx, conversationID); err != nil {
		s.logger.Warn("reveal.check.fail", "conversation_id", conversationID, "err", err)
	}
}

// CheckNow reveals conversationID if enough distinct senders have written.
// It reports whether this call set revealed_at.
func (s *RevealScheduler) CheckNow(ctx context.Context, conversationID string) (bool, error) {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if conv.RevealedAt != nil {
		return false, nil
	}
	n, err := s.convs.CountSenders(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if n < minRevealSenders {
		return false, nil
	}
	revealed, err := s.convs.MarkRevealed(ctx, conversationID, time.Now().UTC())
	if err != nil || !revealed {
		return false, err
	}
	s.metrics.Reveal(config.RevealOnSenders)
	s.logger.Info("reveal.senders", "conversation_id", conversationID)
	s.notifyReveal(ctx, conv)
	return true, nil
}

func (s *RevealScheduler) notifyReveal(ctx context.Context, conv model.Conversation) {
	if s.notifier == nil {
		return
	}
	for _, uid := range []string{conv.UserLow, conv.UserHigh} {
		err := s.notifier.Notify(ctx, uid, Notification{
			Kind:  "reveal",
			Title: "TapIn",
			Body:  "Photos are unlocked. Take a look!",
			Data: map[string]any{
				"type":           "reveal",
				"conversationId": conv.ID,
				"revealReady":    true,
			},
		})
		if err != nil {
			s.logger.Warn("push.reveal.fail", "user_id", uid, "err", err)
		}
	}
}
