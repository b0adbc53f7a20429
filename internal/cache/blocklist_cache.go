// Package cache holds Redis-backed read caches.
package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/iliyamo/tapin-reveal/internal/model"
	"github.com/iliyamo/tapin-reveal/internal/utils"
)

// BlocklistCache remembers blocked pairs.  Blocks are permanent so entries
// carry no TTL; only positive lookups are stored.
type BlocklistCache struct {
	rdb    *redis.Client
	prefix string
}

// NewBlocklistCache returns nil when rdb is nil; a nil cache is a no-op.
func NewBlocklistCache(rdb *redis.Client, prefix string) *BlocklistCache {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "tapin:block"
	}
	return &BlocklistCache{rdb: rdb, prefix: prefix}
}

func (c *BlocklistCache) key(a, b string) string {
	return c.prefix + ":" + utils.PairKey(a, b)
}

// Get returns the cached entry for the pair, in either order.
func (c *BlocklistCache) Get(ctx context.Context, a, b string) (model.BlocklistEntry, bool, error) {
	if c == nil {
		return model.BlocklistEntry{}, false, nil
	}
	data, err := c.rdb.Get(ctx, c.key(a, b)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.BlocklistEntry{}, false, nil
	}
	if err != nil {
		return model.BlocklistEntry{}, false, err
	}
	var e model.BlocklistEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return model.BlocklistEntry{}, false, err
	}
	return e, true, nil
}

// Set stores e under its canonical pair.
func (c *BlocklistCache) Set(ctx context.Context, e model.BlocklistEntry) error {
	if c == nil {
		return nil
	}
	data, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(e.UserLow, e.UserHigh), data, 0).Err()
}
