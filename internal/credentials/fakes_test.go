package credentials

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/oneplace/workspace-mcp/internal/store"
)

type linkKey struct{ workspaceID, integrationID string }

// memStore is an in-memory Store.
type memStore struct {
	mu           sync.Mutex
	integrations map[string]*store.Integration
	links        map[linkKey]store.Link
	upserts      int

	getErr    error
	upsertErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{
		integrations: map[string]*store.Integration{},
		links:        map[linkKey]store.Link{},
	}
}

func (s *memStore) GetOrCreateIntegration(_ context.Context, name string, port *int) (*store.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.integrations[name]; ok {
		return it, nil
	}
	it := &store.Integration{ID: uuid.NewString(), Name: name, Port: port}
	s.integrations[name] = it
	return it, nil
}

func (s *memStore) GetLink(_ context.Context, workspaceID, integrationID string) (*store.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	l, ok := s.links[linkKey{workspaceID, integrationID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (s *memStore) UpsertLink(_ context.Context, workspaceID, integrationID, authDetails string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts++
	key := linkKey{workspaceID, integrationID}
	l, ok := s.links[key]
	if !ok {
		l = store.Link{WorkspaceID: workspaceID, IntegrationID: integrationID, CreatedDate: time.Now().UTC()}
		for _, it := range s.integrations {
			if it.ID == integrationID {
				l.IntegrationName = it.Name
			}
		}
	}
	l.AuthDetails = authDetails
	s.links[key] = l
	return nil
}

func (s *memStore) DeleteLink(_ context.Context, workspaceID, integrationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.links, linkKey{workspaceID, integrationID})
	return nil
}

func (s *memStore) DeleteLinksByIntegrationPrefix(_ context.Context, workspaceID, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	var n int64
	for key, l := range s.links {
		if key.workspaceID == workspaceID && strings.HasPrefix(l.IntegrationName, prefix) {
			delete(s.links, key)
			n++
		}
	}
	return n, nil
}

func (s *memStore) payload(workspaceID, integrationID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[linkKey{workspaceID, integrationID}]
	return l.AuthDetails, ok
}

func (s *memStore) put(workspaceID, integrationID, authDetails string) {
	_ = s.UpsertLink(context.Background(), workspaceID, integrationID, authDetails)
}

// fakeProvider records calls and returns canned tokens.
type fakeProvider struct {
	mu sync.Mutex

	exchangeTok *oauth2.Token
	exchangeErr error

	refreshFn    func(refreshToken string) (*oauth2.Token, error)
	refreshCalls int

	revokeErr error
	revoked   []string
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?access_type=offline&prompt=consent&state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, _ string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return p.exchangeTok, nil
}

func (p *fakeProvider) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	p.mu.Lock()
	p.refreshCalls++
	fn := p.refreshFn
	p.mu.Unlock()
	if fn == nil {
		return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
	}
	return fn(refreshToken)
}

func (p *fakeProvider) Revoke(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, token)
	return p.revokeErr
}

func (p *fakeProvider) refreshes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshCalls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
