package providers

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/fedgrant/internal/cache"
	"github.com/dropDatabas3/fedgrant/internal/grant"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
	tokens "github.com/dropDatabas3/fedgrant/internal/security/token"
)

// CachingFetcher caches successful profile lookups by token hash and
// collapses concurrent lookups of the same token into one provider call.
// Failures are never cached.
type CachingFetcher struct {
	next    grant.ProfileFetcher
	cache   cache.Client
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
}

// DefaultFetchTimeout bounds one shared provider call.
const DefaultFetchTimeout = 15 * time.Second

// NewCachingFetcher wraps next. A ttl <= 0 disables caching but keeps
// de-duplication. Each caller still waits no longer than its own context
// allows.
func NewCachingFetcher(next grant.ProfileFetcher, c cache.Client, ttl time.Duration) *CachingFetcher {
	return &CachingFetcher{next: next, cache: c, ttl: ttl, timeout: DefaultFetchTimeout}
}

// WithTimeout sets the bound of a shared provider call. Values <= 0 are
// ignored.
func (f *CachingFetcher) WithTimeout(d time.Duration) *CachingFetcher {
	if d > 0 {
		f.timeout = d
	}
	return f
}

func cacheKey(token string) string {
	return "profile:" + tokens.SHA256Base64URL(token)
}

func (f *CachingFetcher) Fetch(ctx context.Context, token string) (*grant.Profile, error) {
	key := cacheKey(token)
	log := logger.From(ctx).With(logger.Layer("providers"), logger.Op("CachingFetcher.Fetch"))

	if f.enabled() {
		if b, err := f.cache.Get(ctx, key); err == nil {
			var p grant.Profile
			if json.Unmarshal(b, &p) == nil && p.ID != "" {
				return &p, nil
			}
		} else if !cache.IsNotFound(err) {
			log.Warn("profile cache read failed", logger.Err(err))
		}
	}

	ch := f.group.DoChan(key, func() (any, error) {
		// The call is shared, so no single caller may cancel it.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		p, err := f.next.Fetch(sctx, token)
		if err != nil {
			return nil, err
		}
		if f.enabled() && p != nil {
			if b, err := json.Marshal(p); err == nil {
				if err := f.cache.Set(sctx, key, b, f.ttl); err != nil {
					log.Warn("profile cache write failed", logger.Err(err))
				}
			}
		}
		return p, nil
	})

	var v any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v = res.Val
	}
	p, _ := v.(*grant.Profile)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// Forget drops the cached profile for token.
func (f *CachingFetcher) Forget(ctx context.Context, token string) error {
	if !f.enabled() {
		return nil
	}
	return f.cache.Delete(ctx, cacheKey(token))
}

func (f *CachingFetcher) enabled() bool { return f.cache != nil && f.ttl > 0 }
