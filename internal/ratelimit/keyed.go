// Package ratelimit throttles chat users and LLM calls per key on top of
// golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/garyellow/quizbot-go/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels drops in quiz_rate_limiter_dropped_total ("user", "llm").
	Name string

	Burst      int     // bucket size
	RefillRate float64 // tokens per second

	// DailyLimit adds a second bucket of DailyLimit tokens that refills
	// over 24 hours. Zero disables it.
	DailyLimit int

	// CleanupPeriod is how often keys with full buckets are forgotten.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// buckets is the state for one key. Both buckets are checked and spent
// under the limiter mutex so a request never takes from only one.
type buckets struct {
	burst *rate.Limiter
	daily *rate.Limiter
}

func (b *buckets) allows(now time.Time) bool {
	return b.burst.TokensAt(now) >= 1 && (b.daily == nil || b.daily.TokensAt(now) >= 1)
}

func (b *buckets) full(now time.Time, burst, daily int) bool {
	return b.burst.TokensAt(now) >= float64(burst) &&
		(b.daily == nil || b.daily.TokensAt(now) >= float64(daily))
}

// KeyedLimiter keeps a pair of token buckets per key, typically a channel
// user or account.
type KeyedLimiter struct {
	cfg  KeyedConfig
	now  func() time.Time
	stop chan struct{}
	once sync.Once

	mu   sync.Mutex
	keys map[string]*buckets
}

// NewKeyedLimiter starts a limiter. Call Stop to end the cleanup loop.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	cfg.Burst = max(cfg.Burst, 1)
	kl := &KeyedLimiter{
		cfg:  cfg,
		now:  time.Now,
		stop: make(chan struct{}),
		keys: make(map[string]*buckets),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

func (kl *KeyedLimiter) bucketsFor(key string) *buckets {
	b, ok := kl.keys[key]
	if !ok {
		b = &buckets{burst: rate.NewLimiter(rate.Limit(kl.cfg.RefillRate), kl.cfg.Burst)}
		if kl.cfg.DailyLimit > 0 {
			perSecond := float64(kl.cfg.DailyLimit) / (24 * time.Hour).Seconds()
			b.daily = rate.NewLimiter(rate.Limit(perSecond), kl.cfg.DailyLimit)
		}
		kl.keys[key] = b
	}
	return b
}

// Allow spends one token for key, or reports false and counts a drop.
// An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	now := kl.now()

	kl.mu.Lock()
	b := kl.bucketsFor(key)
	ok := b.allows(now)
	if ok {
		b.burst.AllowN(now, 1)
		if b.daily != nil {
			b.daily.AllowN(now, 1)
		}
	}
	kl.mu.Unlock()

	if !ok && kl.cfg.Metrics != nil {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
	}
	return ok
}

// DailyRemaining returns the whole tokens left in key's daily bucket, or
// -1 when no daily limit is configured.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	kl.mu.Lock()
	defer kl.mu.Unlock()
	b, ok := kl.keys[key]
	if !ok {
		return kl.cfg.DailyLimit
	}
	return int(b.daily.TokensAt(kl.now()))
}

// Len returns the number of keys being tracked.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.keys)
}

// Sweep forgets keys whose buckets have refilled and returns how many went.
func (kl *KeyedLimiter) Sweep() int {
	now := kl.now()
	kl.mu.Lock()
	defer kl.mu.Unlock()
	removed := 0
	for key, b := range kl.keys {
		if b.full(now, kl.cfg.Burst, kl.cfg.DailyLimit) {
			delete(kl.keys, key)
			removed++
		}
	}
	return removed
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stop:
			return
		case <-ticker.C:
			kl.Sweep()
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stop) })
}
