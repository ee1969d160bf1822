package semantic

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Entry is the stored payload plus the debugging/invalidation envelope
// described in spec §4.3: category, normalised_query, stored_at, ttl.
type Entry struct {
	Category        Category        `json:"category"`
	NormalizedQuery string          `json:"normalized_query"`
	Payload         json.RawMessage `json:"payload"`
	StoredAt        time.Time       `json:"stored_at"`
	TTLSeconds      int64           `json:"ttl_seconds"`
}

// Cache is the Semantic Cache's storage layer: an in-process LRU in front
// of Redis. Unlike llm/cache.MultiLevelCache (which applies one fixed TTL
// to every entry), every Set call here carries its own TTL, because the
// TTL table in category.go varies per category from 60s to 24h.
type Cache struct {
	local  *localLRU
	redis  *redis.Client
	logger *zap.Logger
}

// NewCache builds a semantic cache. rdb may be nil, in which case the
// cache operates local-only (useful for tests and for a degraded mode
// when Redis is unreachable).
func NewCache(rdb *redis.Client, localCapacity int, logger *zap.Logger) *Cache {
	if localCapacity <= 0 {
		localCapacity = 2048
	}
	return &Cache{
		local:  newLocalLRU(localCapacity),
		redis:  rdb,
		logger: logger.With(zap.String("component", "semantic_cache")),
	}
}

// Get looks up a key, checking the local LRU before Redis. A hit in Redis
// is promoted into the local LRU with its remaining TTL.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	if entry, ok := c.local.get(key); ok {
		return entry, true
	}

	if c.redis == nil {
		return nil, false
	}

	raw, err := c.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("semantic cache redis get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("semantic cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	remaining := time.Duration(entry.TTLSeconds)*time.Second - time.Since(entry.StoredAt)
	if remaining <= 0 {
		return nil, false
	}
	c.local.set(key, &entry, remaining)
	return &entry, true
}

// Set writes an entry to both layers with the given TTL. Concurrent writes
// to the same key are last-writer-wins; the JSON blob is written in a
// single Redis SET so no reader ever observes a partially-written entry.
func (c *Cache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) {
	entry.TTLSeconds = int64(ttl.Seconds())
	c.local.set(key, entry, ttl)

	if c.redis == nil {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("semantic cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn("semantic cache redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a key from both layers, used by category-scoped
// invalidation from the admin surface.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.local.delete(key)
	if c.redis != nil {
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			c.logger.Warn("semantic cache redis delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// localLRU is a doubly-linked-list LRU, grounded on llm/cache.LRUCache's
// O(1) design, generalized to a per-entry TTL set at insertion time.
type localLRU struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*lruNode
	head     *lruNode
	tail     *lruNode
}

type lruNode struct {
	key       string
	entry     *Entry
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

func newLocalLRU(capacity int) *localLRU {
	return &localLRU{capacity: capacity, items: make(map[string]*lruNode)}
}

func (c *localLRU) get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(node.expiresAt) {
		c.removeNode(node)
		delete(c.items, key)
		return nil, false
	}
	c.moveToHead(node)
	return node.entry, true
}

func (c *localLRU) set(key string, entry *Entry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if node, ok := c.items[key]; ok {
		node.entry = entry
		node.expiresAt = expiresAt
		c.moveToHead(node)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictTail()
	}

	node := &lruNode{key: key, entry: entry, expiresAt: expiresAt}
	c.items[key] = node
	c.addToHead(node)
}

func (c *localLRU) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if node, ok := c.items[key]; ok {
		c.removeNode(node)
		delete(c.items, key)
	}
}

func (c *localLRU) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *localLRU) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}

func (c *localLRU) moveToHead(node *lruNode) {
	if node == c.head {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}

func (c *localLRU) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.items, c.tail.key)
	c.removeNode(c.tail)
}
