package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/utils"
)

// BlocklistManager tracks pairs that must never be freshly matched again.
// Entries are keyed by the canonical pair and never removed.
type BlocklistManager struct {
	store  BlocklistStore
	cache  BlockCache
	logger *slog.Logger
	now    func() time.Time
}

// NewBlocklistManager wires the store and an optional cache (nil disables it).
func NewBlocklistManager(store BlocklistStore, cache BlockCache, logger *slog.Logger) *BlocklistManager {
	return &BlocklistManager{store: store, cache: cache, logger: logger, now: time.Now}
}

// IsBlocked reports whether a and b, in either order, are blocked.
func (b *BlocklistManager) IsBlocked(ctx context.Context, a, c string) (bool, error) {
	if a == "" || c == "" || a == c {
		return false, nil
	}
	if b.cache != nil {
		if _, ok, err := b.cache.Get(ctx, a, c); err != nil {
			b.logger.Warn("blocklist.cache.get.fail", "err", err)
		} else if ok {
			return true, nil
		}
	}
	low, high := utils.CanonicalPair(a, c)
	e, err := b.store.Get(ctx, low, high)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b.remember(ctx, e)
	return true, nil
}

// Block records the pair.  An existing entry gets the new reason and, when
// conversationID is non-empty, the new conversation id.
func (b *BlocklistManager) Block(ctx context.Context, a, c, reason, conversationID string) error {
	if a == "" || c == "" {
		return invalid("user_id", "required")
	}
	if a == c {
		return invalid("other_user_id", "must differ from user_id")
	}
	low, high := utils.CanonicalPair(a, c)
	now := b.now().UTC()
	if err := b.store.Upsert(ctx, model.BlocklistEntry{
		UserLow:            low,
		UserHigh:           high,
		Reason:             reason,
		LastConversationID: conversationID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}); err != nil {
		return err
	}
	if e, err := b.store.Get(ctx, low, high); err == nil {
		b.remember(ctx, e)
	}
	return nil
}

func (b *BlocklistManager) remember(ctx context.Context, e model.BlocklistEntry) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Set(ctx, e); err != nil {
		b.logger.Warn("blocklist.cache.set.fail", "err", err)
	}
}
