package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket holds the remaining budget of one user for one action.
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

// Rule describes the bucket created for an action: Burst tokens, refilled by
// one every Every.
type Rule struct {
	Burst int
	Every time.Duration
}

// DefaultRules are the limits applied to the write paths clients can spam.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		// 10 messages per minute
		"send_message": {Burst: 10, Every: 6 * time.Second},
		// 5 claims per 10 minutes
		"claim_request": {Burst: 5, Every: 2 * time.Minute},
		// 6 images per minute
		"upload_image": {Burst: 6, Every: 10 * time.Second},
	}
}

var defaultRule = Rule{Burst: 20, Every: 3 * time.Second}

type RateLimiter struct {
	rules   map[string]Rule
	buckets map[string]*TokenBucket
	mutex   sync.RWMutex
}

func NewRateLimiter(rules map[string]Rule) *RateLimiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RateLimiter{
		rules:   rules,
		buckets: make(map[string]*TokenBucket),
	}
}

func NewTokenBucket(maxTokens, refillRate int, refillTime time.Duration) *TokenBucket {
	now := time.Now()
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow consumes a token if one is available, otherwise it reports how long
// until the next refill.
func (tb *TokenBucket) Allow(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastUsed = now
	elapsed := now.Sub(tb.lastRefill)
	refills := int(elapsed / tb.refillTime)
	if refills > 0 {
		tb.tokens += refills * tb.refillRate
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(refills) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

func (tb *TokenBucket) GetTokens() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.tokens
}

// Allow checks whether userID may perform action now. A nil limiter allows
// everything.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	if rl == nil {
		return true, 0
	}
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			rule, ok := rl.rules[action]
			if !ok {
				rule = defaultRule
			}
			bucket = NewTokenBucket(rule.Burst, 1, rule.Every)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow(time.Now())
}

// GetStatus returns the remaining and maximum tokens for a user action.
func (rl *RateLimiter) GetStatus(userID, action string) (tokens int, maxTokens int) {
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		return 0, 0
	}

	return bucket.GetTokens(), bucket.maxTokens
}

// Cleanup drops buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastUsed)
		bucket.mutex.Unlock()
		if idle > maxIdle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine prunes idle buckets every 30 minutes until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
