package configplane

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultTTL is the cache lifetime when none is configured,
// matching spec §4.6's "typically 60s".
const defaultTTL = 60 * time.Second

// snapshot is one cached read: the value plus when it was filled.
type snapshot struct {
	flags     []FeatureFlag
	flagIndex map[string]FeatureFlag
	backends  []BackendDescriptor
	models    []ModelExecutionConfig
	routing   []RoutingRule
	filledAt  time.Time
}

func (s snapshot) fresh(ttl time.Duration) bool {
	return !s.filledAt.IsZero() && time.Since(s.filledAt) < ttl
}

// Cache sits in front of a Store, serving reads from an immutable snapshot
// for up to TTL before refilling. Pushed invalidation (from the admin
// surface) deletes the snapshot early so the next read refills regardless
// of TTL — this is the "push-invalidated cache" spec §4.6 names. Readers
// never hold a lock during the Store I/O that refills a miss; only the
// swap of the snapshot pointer is guarded, matching the teacher's
// "config snapshots are immutable values, readers grab a reference"
// idiom from hotreload.go's GetConfig.
//
// All kinds share one fill time: refilling any kind restarts the TTL of
// every kind already held in the snapshot. A kind that has not been filled
// yet is read from the store on first use.
type Cache struct {
	mu    sync.RWMutex
	snap  snapshot
	store Store
	ttl   time.Duration

	logger *zap.Logger
}

// NewCache wraps store with a TTL cache. ttl <= 0 uses defaultTTL.
func NewCache(store Store, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{store: store, ttl: ttl, logger: logger.With(zap.String("component", "configplane_cache"))}
}

// FeatureFlags returns the cached flag list, refilling from the store if
// stale. The list is served whole from the snapshot, never-cached
// categories included; the per-category bypass applies to FeatureFlag.
func (c *Cache) FeatureFlags() ([]FeatureFlag, error) {
	c.mu.RLock()
	fresh := c.snap.fresh(c.ttl) && c.snap.flags != nil
	flags := c.snap.flags
	c.mu.RUnlock()
	if fresh {
		return flags, nil
	}
	return c.refillFlags()
}

// FeatureFlag looks up a single flag by name. Security-critical
// categories bypass the cache entirely per spec §4.6.
func (c *Cache) FeatureFlag(name string) (FeatureFlag, bool, error) {
	c.mu.RLock()
	fresh := c.snap.fresh(c.ttl)
	flag, ok := c.snap.flagIndex[name]
	c.mu.RUnlock()

	if fresh && ok && !flag.BypassesCache() {
		return flag, true, nil
	}
	return c.store.FeatureFlag(name)
}

func (c *Cache) refillFlags() ([]FeatureFlag, error) {
	flags, err := c.store.FeatureFlags()
	if err != nil {
		return nil, err
	}
	index := make(map[string]FeatureFlag, len(flags))
	for _, f := range flags {
		index[f.Name] = f
	}

	c.mu.Lock()
	c.snap.flags = flags
	c.snap.flagIndex = index
	c.snap.filledAt = time.Now()
	c.mu.Unlock()
	return flags, nil
}

// BackendDescriptors returns the cached descriptor list, refilling if stale.
func (c *Cache) BackendDescriptors() ([]BackendDescriptor, error) {
	c.mu.RLock()
	fresh := c.snap.fresh(c.ttl) && c.snap.backends != nil
	backends := c.snap.backends
	c.mu.RUnlock()
	if fresh {
		return backends, nil
	}

	backends, err := c.store.BackendDescriptors()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snap.backends = backends
	c.snap.filledAt = time.Now()
	c.mu.Unlock()
	return backends, nil
}

// ModelExecutionConfigs returns the cached model config list, refilling if stale.
func (c *Cache) ModelExecutionConfigs() ([]ModelExecutionConfig, error) {
	c.mu.RLock()
	fresh := c.snap.fresh(c.ttl) && c.snap.models != nil
	models := c.snap.models
	c.mu.RUnlock()
	if fresh {
		return models, nil
	}

	models, err := c.store.ModelExecutionConfigs()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snap.models = models
	c.snap.filledAt = time.Now()
	c.mu.Unlock()
	return models, nil
}

// RoutingRules returns the cached routing table, refilling if stale.
func (c *Cache) RoutingRules() ([]RoutingRule, error) {
	c.mu.RLock()
	fresh := c.snap.fresh(c.ttl) && c.snap.routing != nil
	rules := c.snap.routing
	c.mu.RUnlock()
	if fresh {
		return rules, nil
	}

	rules, err := c.store.RoutingRules()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snap.routing = rules
	c.snap.filledAt = time.Now()
	c.mu.Unlock()
	return rules, nil
}

// Invalidate drops the entire cached snapshot, forcing the next read of
// any kind to refill from the store regardless of remaining TTL. Called
// by the /admin/invalidate-feature-cache handler.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = snapshot{}
	c.mu.Unlock()
	c.logger.Info("configplane cache invalidated")
}

// InvalidateFlags drops only the cached flag index, leaving backend/model/
// routing snapshots untouched — used when the invalidation request names
// specific flags rather than "everything".
func (c *Cache) InvalidateFlags(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(names) == 0 {
		c.snap.flags = nil
		c.snap.flagIndex = nil
		return
	}
	for _, n := range names {
		delete(c.snap.flagIndex, n)
	}
}

// FilledAt reports when the snapshot was last refilled, for /debug/feature-flags.
func (c *Cache) FilledAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.filledAt
}
