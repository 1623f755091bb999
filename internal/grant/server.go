package grant

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Grant is one exchangeable token endpoint strategy.
type Grant interface {
	// Identifier is the grant_type value routed to the grant. Client
	// permissions are scoped by it too.
	Identifier() string
	CompleteFlow(ctx context.Context, req *Request) (*TokenResponse, error)
}

// Server routes token requests to registered grants by grant_type.
type Server struct {
	mu     sync.RWMutex
	grants map[string]Grant
}

func NewServer() *Server {
	return &Server{grants: make(map[string]Grant)}
}

// Register adds g. Registering the same identifier twice is a
// configuration error.
func (s *Server) Register(g Grant) error {
	id := g.Identifier()
	if id == "" {
		return ConfigurationError("grant identifier is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.grants[id]; dup {
		return ConfigurationError("grant %q already registered", id)
	}
	s.grants[id] = g
	return nil
}

func (s *Server) HasGrantType(id string) bool {
	_, ok := s.Grant(id)
	return ok
}

func (s *Server) Grant(id string) (Grant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[id]
	return g, ok
}

// Identifiers returns the registered grant types, sorted.
func (s *Server) Identifiers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.grants))
	for id := range s.grants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RefreshTokenTTL reports whether a refresh grant is registered and the TTL
// it configures. Other grants use it to decide whether to mint refresh
// tokens.
func (s *Server) RefreshTokenTTL() (time.Duration, bool) {
	g, ok := s.Grant(RefreshIdentifier)
	if !ok {
		return 0, false
	}
	r, ok := g.(interface{ RefreshTokenTTL() time.Duration })
	if !ok {
		return 0, false
	}
	return r.RefreshTokenTTL(), true
}

// CompleteFlow dispatches req by its grant_type parameter.
func (s *Server) CompleteFlow(ctx context.Context, req *Request) (*TokenResponse, error) {
	gt := req.Param("grant_type")
	if gt == "" {
		return nil, InvalidRequest("grant_type")
	}
	g, ok := s.Grant(gt)
	if !ok {
		return nil, ErrUnsupportedGrantType
	}
	return g.CompleteFlow(ctx, req)
}
