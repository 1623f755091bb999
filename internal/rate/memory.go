package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter is the in-process fixed window limiter. Counters expire
// with their window.
type MemoryLimiter struct {
	mu     sync.Mutex
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.c.Add(key, int64(1), l.window); err != nil {
		if _, err := l.c.IncrementInt64(key, 1); err != nil {
			// expired between Add and Increment
			l.c.Set(key, int64(1), l.window)
		}
	}
	v, exp, _ := l.c.GetWithExpiration(key)
	hits, _ := v.(int64)
	ttl := exp.Sub(l.now())
	if ttl < 0 {
		ttl = 0
	}
	return result(hits, l.max, ttl, l.window), nil
}
