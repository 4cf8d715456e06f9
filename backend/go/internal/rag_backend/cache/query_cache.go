package cache

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/util"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Key identifies one query result.
type Key struct {
	Mode       string
	Query      string
	Multimodal []models.MultimodalItem
}

// Hash returns a stable digest of the key.
func (k Key) Hash() string {
	h := sha256.New()
	h.Write([]byte(k.Mode))
	h.Write([]byte{0})
	h.Write([]byte(k.Query))
	h.Write([]byte{0})
	if len(k.Multimodal) > 0 {
		raw, _ := json.Marshal(k.Multimodal)
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// QueryCache stores answers to queries until the indexed content changes.
type QueryCache interface {
	Get(ctx context.Context, key Key) (string, bool)
	Set(ctx context.Context, key Key, answer string)
	// Epoch captures the invalidation state before an answer is computed.
	Epoch(ctx context.Context) Epoch
	// SetIfCurrent stores answer only when no Invalidate ran since epoch was taken.
	SetIfCurrent(ctx context.Context, key Key, answer string, epoch Epoch) bool
	// Invalidate drops every cached answer.
	Invalidate(ctx context.Context)
}

// Epoch is the invalidation state of a Tiered cache at one point in time.
type Epoch struct {
	local    uint64
	redisGen int64
	redisOK  bool
}

// Tiered is an in-process LRU in front of an optional Redis.
// Redis entries are namespaced by a generation counter that Invalidate bumps,
// so stale answers are never read even though they are not deleted.
type Tiered struct {
	// mu orders local writes against Invalidate.
	mu    sync.Mutex
	epoch uint64

	local  *util.LRUCache[string, string]
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    *logger.Logger
}

// NewTiered creates the cache. rdb may be nil to run with the local level only.
func NewTiered(capacity int, ttl time.Duration, rdb *redis.Client, prefix string, log *logger.Logger) (*Tiered, error) {
	if capacity <= 0 {
		capacity = 256
	}
	local, err := util.NewWithConfig(util.CacheConfig[string, string]{Capacity: capacity, TTL: ttl})
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Tiered{local: local, rdb: rdb, prefix: prefix, ttl: ttl, log: log}, nil
}

func (c *Tiered) generationKey() string {
	return c.prefix + "gen"
}

func (c *Tiered) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

func (c *Tiered) redisKeyAt(gen int64, hash string) string {
	return fmt.Sprintf("%sq:%d:%s", c.prefix, gen, hash)
}

func (c *Tiered) redisKey(ctx context.Context, hash string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return c.redisKeyAt(gen, hash), nil
}

// Get implements QueryCache.
func (c *Tiered) Get(ctx context.Context, key Key) (string, bool) {
	hash := key.Hash()
	if v, ok := c.local.Get(hash); ok {
		return v, true
	}
	if c.rdb == nil {
		return "", false
	}
	c.mu.Lock()
	local := c.epoch
	c.mu.Unlock()

	rk, err := c.redisKey(ctx, hash)
	if err != nil {
		c.log.Warn(fmt.Sprintf("query cache: redis generation lookup failed: %v", err))
		return "", false
	}
	v, err := c.rdb.Get(ctx, rk).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn(fmt.Sprintf("query cache: redis get failed: %v", err))
		}
		return "", false
	}
	c.mu.Lock()
	if c.epoch == local {
		c.local.Put(hash, v, 1)
	}
	c.mu.Unlock()
	return v, true
}

// Set implements QueryCache.
func (c *Tiered) Set(ctx context.Context, key Key, answer string) {
	c.SetIfCurrent(ctx, key, answer, c.Epoch(ctx))
}

// Epoch implements QueryCache.
func (c *Tiered) Epoch(ctx context.Context) Epoch {
	c.mu.Lock()
	e := Epoch{local: c.epoch}
	c.mu.Unlock()
	if c.rdb == nil {
		return e
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn(fmt.Sprintf("query cache: redis generation lookup failed: %v", err))
		return e
	}
	e.redisGen, e.redisOK = gen, true
	return e
}

// SetIfCurrent implements QueryCache. The Redis write goes to the generation captured in
// epoch, so an answer that raced another replica's Invalidate lands where nobody reads.
func (c *Tiered) SetIfCurrent(ctx context.Context, key Key, answer string, epoch Epoch) bool {
	hash := key.Hash()
	c.mu.Lock()
	if c.epoch != epoch.local {
		c.mu.Unlock()
		return false
	}
	c.local.Put(hash, answer, 1)
	c.mu.Unlock()

	if c.rdb == nil || !epoch.redisOK {
		return true
	}
	if err := c.rdb.Set(ctx, c.redisKeyAt(epoch.redisGen, hash), answer, c.ttl).Err(); err != nil {
		c.log.Warn(fmt.Sprintf("query cache: redis set failed: %v", err))
	}
	return true
}

// Invalidate implements QueryCache.
func (c *Tiered) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.epoch++
	c.local.Purge()
	c.mu.Unlock()
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.log.Warn(fmt.Sprintf("query cache: redis invalidate failed: %v", err))
	}
}

// Len returns the number of answers held in process.
func (c *Tiered) Len() int {
	return c.local.Len()
}
