// Package credentialstest provides a scripted OAuth provider for tests of
// packages built on credentials.Manager.
package credentialstest

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/google"
)

// RejectedCode is refused by Provider.Exchange with invalid_grant.
const RejectedCode = "rejected-code"

// Provider is an in-memory credentials.OAuthProvider. Exchange issues
// "at-<code>"/"rt-<code>" valid for an hour; Refresh always fails with
// invalid_grant unless RefreshFn is set.
type Provider struct {
	mu sync.Mutex

	// Now stamps issued tokens; nil means time.Now.
	Now       func() time.Time
	RefreshFn func(refreshToken string) (*oauth2.Token, error)

	revoked []string
}

var _ credentials.OAuthProvider = (*Provider)(nil)

func (p *Provider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Provider) AuthCodeURL(state string) string {
	return google.AuthURLPrefix + "?access_type=offline&prompt=consent&state=" + url.QueryEscape(state)
}

func (p *Provider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code == RejectedCode {
		return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
	}
	return &oauth2.Token{
		AccessToken:  "at-" + code,
		RefreshToken: "rt-" + code,
		Expiry:       p.now().Add(time.Hour),
	}, nil
}

func (p *Provider) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	p.mu.Lock()
	fn := p.RefreshFn
	p.mu.Unlock()
	if fn == nil {
		return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
	}
	return fn(refreshToken)
}

func (p *Provider) Revoke(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, token)
	return nil
}

// Revoked returns the tokens passed to Revoke, in order.
func (p *Provider) Revoked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.revoked...)
}

// NewRegistry returns a registry with one manager per service, all backed by
// st and p.
func NewRegistry(st credentials.Store, p *Provider, opts ...credentials.Option) *credentials.Registry {
	managers := make([]*credentials.Manager, 0, len(google.Services()))
	for _, svc := range google.Services() {
		managers = append(managers, credentials.NewManager(svc, st, p, opts...))
	}
	return credentials.NewRegistryFromManagers(managers...)
}
