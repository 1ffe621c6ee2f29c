package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds a single rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SendLimiter is a per-member token-bucket limiter for outgoing messages.
//
// Buckets are created on demand and idle ones are evicted opportunistically
// during lookups. A nil *SendLimiter allows everything.
//
// This type is safe for concurrent use.
type SendLimiter struct {
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[int64]*visitor

	ttl      time.Duration
	cleanupN uint64
	now      func() time.Time
}

// NewSendLimiter constructs a SendLimiter allowing rps messages per second
// per member with the given burst. burst <= 0 is coerced to 1. rps <= 0
// disables limiting and returns nil.
func NewSendLimiter(rps float64, burst int) *SendLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &SendLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[int64]*visitor),
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether member may send one message now, consuming a token
// if so.
func (l *SendLimiter) Allow(member int64) bool {
	if l == nil {
		return true
	}
	now := l.now()
	return l.getVisitor(member, now).AllowN(now, 1)
}

// getVisitor returns (and updates) the limiter for member, creating it if
// absent. GC runs before the lookup so a stale bucket can be evicted even
// when it is the one being fetched.
func (l *SendLimiter) getVisitor(member int64, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupN++
	if l.cleanupN >= 5000 {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.ttl {
				delete(l.visitors, k)
			}
		}
		l.cleanupN = 0
	}

	if v, ok := l.visitors[member]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.visitors[member] = &visitor{limiter: lim, lastSeen: now}
	return lim
}
