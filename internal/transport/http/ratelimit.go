package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter is a per-user token bucket, used to keep one user from
// flooding room creation. Idle buckets are pruned lazily.
type userLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
	lastGC   time.Time
	idleTime time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(limit rate.Limit, burst int) *userLimiter {
	return &userLimiter{
		buckets:  make(map[string]*bucket),
		limit:    limit,
		burst:    burst,
		lastGC:   time.Now(),
		idleTime: time.Hour,
	}
}

func (l *userLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > l.idleTime {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.idleTime {
				delete(l.buckets, k)
			}
		}
		l.lastGC = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}
