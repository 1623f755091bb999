package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/fedgrant/internal/grant"
)

// Registry maps provider names to fetchers.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]grant.ProfileFetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]grant.ProfileFetcher)}
}

// Register adds f under name. Names are unique.
func (r *Registry) Register(name string, f grant.ProfileFetcher) error {
	if name == "" || f == nil {
		return fmt.Errorf("providers: name and fetcher are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.fetchers[name]; dup {
		return fmt.Errorf("providers: %q already registered", name)
	}
	r.fetchers[name] = f
	return nil
}

func (r *Registry) Get(name string) (grant.ProfileFetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[name]
	return f, ok
}

// Names returns registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.fetchers))
	for n := range r.fetchers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
