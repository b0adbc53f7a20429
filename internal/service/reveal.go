package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/config"
	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/model"
)

// Decision outcomes.
const (
	OutcomeWaiting    = "waiting"
	OutcomeMatched    = "matched"
	OutcomeSearchNext = "search_next"
)

// Messages shown to the deciding user.
const (
	msgAlreadyHandled = "Already handled. Showing someone new."
	msgYouPassed      = "Not your vibe. Let's find someone better matched."
	msgTheyPassed     = "They weren't aligned this time."
	msgWaiting        = "Waiting for their response…"
	msgMatched        = "It's a match 🔥"
)

// DecisionRequest is one side's meet/pass choice for a conversation.
type DecisionRequest struct {
	ConversationID string
	UserID         string
	OtherUserID    string
	Decision       string
}

// Outcome is the result of a decision as seen by the submitting user.
type Outcome struct {
	Status  string
	Slot    int
	DayKey  string
	Message string
}

// RevealCoordinator resolves the two-party meet/pass rendezvous.  The
// outcome is recomputed from stored decisions on every call, so repeated or
// concurrent submissions converge on the same answer.
type RevealCoordinator struct {
	decisions DecisionStore
	convs     ConversationStore
	cycle     *CycleAllocator
	blocks    *BlocklistManager
	media     MediaStore
	notifier  Notifier
	policy    string
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// RevealDeps groups the coordinator's collaborators.  Notifier and Media may
// be nil.
type RevealDeps struct {
	Decisions DecisionStore
	Convs     ConversationStore
	Cycle     *CycleAllocator
	Blocks    *BlocklistManager
	Media     MediaStore
	Notifier  Notifier
	Policy    string
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func NewRevealCoordinator(d RevealDeps) *RevealCoordinator {
	policy := d.Policy
	if policy == "" {
		policy = config.RevealOnDecision
	}
	return &RevealCoordinator{
		decisions: d.Decisions,
		convs:     d.Convs,
		cycle:     d.Cycle,
		blocks:    d.Blocks,
		media:     d.Media,
		notifier:  d.Notifier,
		policy:    policy,
		metrics:   d.Metrics,
		logger:    d.Logger,
		now:       time.Now,
	}
}

// SubmitDecision records req and returns the resulting outcome.
func (r *RevealCoordinator) SubmitDecision(ctx context.Context, req DecisionRequest) (Outcome, error) {
	req.Decision = strings.ToLower(strings.TrimSpace(req.Decision))
	switch {
	case req.ConversationID == "":
		return Outcome{}, invalid("conversation_id", "required")
	case req.UserID == "" || req.OtherUserID == "":
		return Outcome{}, invalid("other_user_id", "required")
	case req.UserID == req.OtherUserID:
		return Outcome{}, invalid("other_user_id", "must differ from user_id")
	case !model.ValidDecision(req.Decision):
		return Outcome{}, invalid("decision", "must be meet or pass")
	}

	now := r.now()
	day := r.cycle.DayKey(now)

	blocked, err := r.blocks.IsBlocked(ctx, req.UserID, req.OtherUserID)
	if err != nil {
		return Outcome{}, err
	}
	if blocked {
		r.metrics.Decision(OutcomeSearchNext)
		return Outcome{Status: OutcomeSearchNext, DayKey: day, Message: msgAlreadyHandled}, nil
	}

	// The conversation row is only created once a slot is secured.
	existing, err := r.convs.Get(ctx, req.ConversationID)
	switch {
	case err == nil:
		if !existing.HasParticipant(req.UserID) || !existing.HasParticipant(req.OtherUserID) {
			return Outcome{}, &NotFoundError{What: "conversation"}
		}
	case !errors.Is(err, ErrNotFound):
		return Outcome{}, err
	}

	slot, err := r.cycle.EnsureSlot(ctx, req.UserID, day, req.OtherUserID, req.ConversationID)
	if err != nil {
		return Outcome{}, err
	}

	conv, err := r.convs.Ensure(ctx, req.ConversationID, req.UserID, req.OtherUserID, now)
	if err != nil {
		return Outcome{}, err
	}
	if !conv.HasParticipant(req.UserID) || !conv.HasParticipant(req.OtherUserID) {
		return Outcome{}, &NotFoundError{What: "conversation"}
	}

	if err := r.decisions.Upsert(ctx, model.RevealDecision{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		OtherUserID:    req.OtherUserID,
		Decision:       req.Decision,
		DecidedAt:      now.UTC(),
	}); err != nil {
		return Outcome{}, err
	}

	theirs := ""
	other, err := r.decisions.Get(ctx, req.ConversationID, req.OtherUserID)
	switch {
	case err == nil:
		theirs = other.Decision
	case !errors.Is(err, ErrNotFound):
		return Outcome{}, err
	}

	out := Outcome{Slot: slot.Slot, DayKey: day}
	switch {
	case req.Decision == model.DecisionPass || theirs == model.DecisionPass:
		if err := r.reject(ctx, req, day); err != nil {
			return Outcome{}, err
		}
		out.Status = OutcomeSearchNext
		out.Message = msgTheyPassed
		if req.Decision == model.DecisionPass {
			out.Message = msgYouPassed
		}
	case theirs == "":
		out.Status = OutcomeWaiting
		out.Message = msgWaiting
	default:
		if err := r.match(ctx, req, day, now); err != nil {
			return Outcome{}, err
		}
		out.Status = OutcomeMatched
		out.Message = msgMatched
	}
	r.metrics.Decision(out.Status)
	return out, nil
}

func (r *RevealCoordinator) reject(ctx context.Context, req DecisionRequest, day string) error {
	if err := r.blocks.Block(ctx, req.UserID, req.OtherUserID, model.BlockReasonPassed, req.ConversationID); err != nil {
		return err
	}
	if err := r.cycle.SetStatus(ctx, req.UserID, day, req.OtherUserID, model.SlotPassed); err != nil {
		return err
	}
	_, err := r.convs.SetStatusIfOpen(ctx, req.ConversationID, model.ConversationPassed)
	return err
}

func (r *RevealCoordinator) match(ctx context.Context, req DecisionRequest, day string, now time.Time) error {
	if err := r.cycle.SetStatus(ctx, req.UserID, day, req.OtherUserID, model.SlotMeet); err != nil {
		return err
	}
	changed, err := r.convs.SetStatusIfOpen(ctx, req.ConversationID, model.ConversationMatched)
	if err != nil {
		return err
	}
	if r.policy == config.RevealOnDecision {
		revealed, err := r.convs.MarkRevealed(ctx, req.ConversationID, now.UTC())
		if err != nil {
			return err
		}
		if revealed {
			r.metrics.Reveal(config.RevealOnDecision)
			r.logger.Info("reveal.matched", "conversation_id", req.ConversationID)
		}
	}
	if changed {
		r.notifyMatch(ctx, req)
	}
	return nil
}

// notifyMatch tells both sides.  Failures are logged; the match stands.
func (r *RevealCoordinator) notifyMatch(ctx context.Context, req DecisionRequest) {
	if r.notifier == nil {
		return
	}
	for _, uid := range []string{req.UserID, req.OtherUserID} {
		err := r.notifier.Notify(ctx, uid, Notification{
			Kind:  "match",
			Title: msgMatched,
			Body:  "You both said meet. Say hi!",
			Data: map[string]any{
				"type":           "match",
				"conversationId": req.ConversationID,
				"revealReady":    r.policy == config.RevealOnDecision,
			},
		})
		if err != nil {
			r.logger.Warn("push.match.fail", "user_id", uid, "err", err)
		}
	}
}

// RevealedPhoto returns the other participant's primary photo URL once the
// conversation is revealed.  ok is false when they have no photo.
func (r *RevealCoordinator) RevealedPhoto(ctx context.Context, viewerID, conversationID, otherUserID string) (string, bool, error) {
	if conversationID == "" || otherUserID == "" {
		return "", false, invalid("conversation_id", "conversation_id and other_user_id are required")
	}
	conv, err := r.convs.Get(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return "", false, &ForbiddenError{Reason: "Not revealed yet"}
	}
	if err != nil {
		return "", false, err
	}
	if !conv.HasParticipant(viewerID) || !conv.HasParticipant(otherUserID) || viewerID == otherUserID {
		return "", false, &ForbiddenError{Reason: "not a participant"}
	}
	if conv.RevealedAt == nil {
		return "", false, &ForbiddenError{Reason: "Not revealed yet"}
	}
	if r.media == nil {
		return "", false, nil
	}
	u, ok, err := r.media.PrimaryPhotoURL(ctx, otherUserID)
	if err != nil {
		return "", false, &UpstreamError{Service: "media", Err: err}
	}
	return u, ok, nil
}
