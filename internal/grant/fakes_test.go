package grant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// seqIDs hands out tok-1, tok-2, ...
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("tok-%d", g.n), nil
}

type failingIDs struct{}

func (failingIDs) NewID() (string, error) { return "", errors.New("entropy exhausted") }

// fakeStore records writes in order and can fail a given kind of write.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*repository.Session
	access   map[string]*repository.AccessToken
	refresh  map[string]*repository.RefreshToken
	writes   []string
	failOn   string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[string]*repository.Session{},
		access:   map[string]*repository.AccessToken{},
		refresh:  map[string]*repository.RefreshToken{},
	}
}

func (s *fakeStore) Sessions() repository.SessionRepository { return fakeSessions{s} }
func (s *fakeStore) Tokens() repository.TokenRepository     { return fakeTokens{s} }

func (s *fakeStore) record(kind string) error {
	if s.failOn == kind {
		return fmt.Errorf("%s write: disk full", kind)
	}
	s.writes = append(s.writes, kind)
	return nil
}

func (s *fakeStore) artifacts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions) + len(s.access) + len(s.refresh)
}

type fakeSessions struct{ s *fakeStore }

func (r fakeSessions) Create(_ context.Context, sess *repository.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.record("session"); err != nil {
		return err
	}
	cp := *sess
	cp.Scopes = append([]string{}, sess.Scopes...)
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r fakeSessions) Get(_ context.Context, id string) (*repository.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

type fakeTokens struct{ s *fakeStore }

func (r fakeTokens) CreateAccessToken(_ context.Context, t *repository.AccessToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.record("access"); err != nil {
		return err
	}
	cp := *t
	r.s.access[t.ID] = &cp
	return nil
}

func (r fakeTokens) GetAccessToken(_ context.Context, id string) (*repository.AccessToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.access[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r fakeTokens) CreateRefreshToken(_ context.Context, t *repository.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.record("refresh"); err != nil {
		return err
	}
	cp := *t
	r.s.refresh[t.ID] = &cp
	return nil
}

func (r fakeTokens) GetRefreshToken(_ context.Context, id string) (*repository.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r fakeTokens) RevokeRefreshToken(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[id]
	if !ok || t.RevokedAt != nil {
		return repository.ErrNotFound
	}
	if err := r.s.record("revoke"); err != nil {
		return err
	}
	at := testNow
	t.RevokedAt = &at
	return nil
}

// fakeTxStore stages writes on a copy and commits them only when fn succeeds.
type fakeTxStore struct {
	*fakeStore
}

func (s fakeTxStore) InTx(ctx context.Context, fn func(repository.TokenStore) error) error {
	staged := newFakeStore()
	staged.failOn = s.failOn
	s.mu.Lock()
	for k, v := range s.sessions {
		staged.sessions[k] = v
	}
	for k, v := range s.access {
		staged.access[k] = v
	}
	for k, v := range s.refresh {
		cp := *v
		staged.refresh[k] = &cp
	}
	s.mu.Unlock()

	if err := fn(staged); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions, s.access, s.refresh = staged.sessions, staged.access, staged.refresh
	s.writes = append(s.writes, staged.writes...)
	return nil
}

type fakeClient struct {
	secret string
	client *repository.Client
}

type fakeClients struct {
	mu      sync.Mutex
	clients map[string]fakeClient
	calls   int
	err     error
}

func (f *fakeClients) Get(_ context.Context, id, secret, grantType string) (*repository.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.clients[id]
	if !ok || c.secret != secret || !c.client.AllowsGrant(grantType) {
		return nil, repository.ErrNotFound
	}
	return c.client, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// tokenVerifier accepts a fixed token → user table and counts calls.
type tokenVerifier struct {
	mu      sync.Mutex
	users   map[string]string
	err     error
	calls   int
	profile *Profile
}

func (v *tokenVerifier) Verify(_ context.Context, token string, profile *Profile) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	v.profile = profile
	if v.err != nil {
		return "", v.err
	}
	if uid, ok := v.users[token]; ok {
		return uid, nil
	}
	return "", ErrRejected
}

type stubFetcher struct {
	profile *Profile
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (*Profile, error) {
	f.calls++
	return f.profile, f.err
}
