package credentials

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/oneplace/workspace-mcp/internal/google"
)

// OAuthProvider is the provider side of the credential lifecycle.
type OAuthProvider interface {
	// AuthCodeURL returns the consent URL carrying state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	// Refresh obtains a new access token with the refresh grant.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	// Revoke invalidates token at the provider.
	Revoke(ctx context.Context, token string) error
}

// GoogleProvider implements OAuthProvider against Google's OAuth2 endpoints.
type GoogleProvider struct {
	config    *oauth2.Config
	client    *http.Client
	revokeURL string
}

var _ OAuthProvider = (*GoogleProvider)(nil)

// NewGoogleProvider returns a provider for config. All token endpoint and
// revocation traffic goes through client.
func NewGoogleProvider(config *oauth2.Config, client *http.Client) *GoogleProvider {
	if client == nil {
		client = google.NewHTTPClient(google.DefaultHTTPTimeout)
	}
	return &GoogleProvider{
		config:    config,
		client:    client,
		revokeURL: google.RevokeURL,
	}
}

func (p *GoogleProvider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

// AuthCodeURL requests offline access and forces the consent screen so a
// refresh token is issued on every grant.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(p.withClient(ctx), code)
}

func (p *GoogleProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// An already-expired token forces the token source to use the refresh grant.
	stale := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	tok, err := p.config.TokenSource(p.withClient(ctx), stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return tok, nil
}

func (p *GoogleProvider) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("revoke token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
