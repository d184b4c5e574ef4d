// Package ratelimit provides rate limiting implementations.
package ratelimit

import (
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// tokenBucket is the in-process twin of the Redis script: capacity tokens,
// refilled continuously at rate tokens per second.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// localBuckets answers rate checks while Redis is unreachable.
// Counts are per instance, so the effective limit is multiplied by the
// number of replicas during an outage. Idle buckets expire with go-cache.
type localBuckets struct {
	capacity float64
	rate     float64
	buckets  *gocache.Cache
	mu       sync.Mutex
}

func newLocalBuckets(capacity, rate float64, idle time.Duration) *localBuckets {
	return &localBuckets{
		capacity: capacity,
		rate:     rate,
		buckets:  gocache.New(idle, idle),
	}
}

// take consumes one token for key. It returns whether the request is allowed,
// the whole tokens left and how long until the bucket is full again.
func (l *localBuckets) take(key string, now time.Time) (bool, int, time.Duration) {
	b := l.bucket(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()

	// 1. Refill for the time elapsed since the last request
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.tokens+elapsed*l.rate, l.capacity)
		b.lastRefill = now
	}

	// 2. Consume
	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	// 3. Time to full, matching the script's reset_ms
	var untilFull time.Duration
	if b.tokens < l.capacity && l.rate > 0 {
		untilFull = time.Duration(math.Ceil((l.capacity-b.tokens)/l.rate*1000)) * time.Millisecond
	}
	return allowed, int(b.tokens), untilFull
}

// bucket returns key's bucket, creating a full one on first use, and renews its idle timer.
func (l *localBuckets) bucket(key string, now time.Time) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(key); ok {
		b := v.(*tokenBucket)
		l.buckets.SetDefault(key, b)
		return b
	}
	b := &tokenBucket{tokens: l.capacity, lastRefill: now}
	l.buckets.SetDefault(key, b)
	return b
}

// size is the number of live buckets.
func (l *localBuckets) size() int {
	return l.buckets.ItemCount()
}

//Personal.AI order the ending
