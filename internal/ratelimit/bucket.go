// Package ratelimit provides the token-bucket admission control used by the
// Gateway to shed load before a request reaches the LLM Router.
// This package is internal and should not be imported by external projects.
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls a single bucket's capacity and refill behavior.
type Config struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity float64 `yaml:"capacity" json:"capacity"`

	// RefillPerSecond is how many tokens are added back per second.
	RefillPerSecond float64 `yaml:"refill_per_second" json:"refill_per_second"`
}

// DefaultConfig returns a conservative per-session default.
func DefaultConfig() Config {
	return Config{
		Capacity:        10,
		RefillPerSecond: 2,
	}
}

// Bucket is a single token bucket, safe for concurrent use.
type Bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

// NewBucket creates a bucket that starts full.
func NewBucket(cfg Config) *Bucket {
	return &Bucket{
		capacity:   cfg.Capacity,
		refillRate: cfg.RefillPerSecond,
		tokens:     cfg.Capacity,
		lastRefill: time.Now(),
	}
}

// Allow attempts to withdraw one token. It reports whether the request is
// admitted.
func (b *Bucket) Allow() bool {
	return b.AllowN(1)
}

// AllowN attempts to withdraw n tokens atomically.
func (b *Bucket) AllowN(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// Remaining returns the current token count after applying refill.
func (b *Bucket) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

func (b *Bucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// Limiter holds one bucket per key (session, tenant, or IP) and evicts idle
// buckets so memory does not grow unbounded under churn.
type Limiter struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[string]*limiterEntry
	logger  *zap.Logger
	idleTTL time.Duration
}

type limiterEntry struct {
	bucket   *Bucket
	lastSeen time.Time
}

// NewLimiter creates a keyed rate limiter. idleTTL is how long a key's
// bucket is retained without traffic before it is evicted; pass 0 to use
// a 10-minute default.
func NewLimiter(cfg Config, idleTTL time.Duration, logger *zap.Logger) *Limiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*limiterEntry),
		logger:  logger.With(zap.String("component", "ratelimit")),
		idleTTL: idleTTL,
	}
}

// Allow admits or rejects a single request for the given key, creating a
// fresh bucket on first use.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	entry, ok := l.buckets[key]
	if !ok {
		entry = &limiterEntry{bucket: NewBucket(l.cfg)}
		l.buckets[key] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.bucket.Allow()
}

// Sweep removes buckets that have been idle longer than idleTTL. Callers
// run this periodically from a background goroutine.
func (l *Limiter) Sweep() int {
	cutoff := time.Now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, entry := range l.buckets {
		if entry.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			evicted++
		}
	}
	if evicted > 0 {
		l.logger.Debug("swept idle buckets", zap.Int("evicted", evicted))
	}
	return evicted
}

// Count returns the number of tracked keys, mostly for tests and metrics.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
