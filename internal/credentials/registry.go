package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/oneplace/workspace-mcp/internal/google"
)

// RegistryConfig holds what every manager of a registry shares.
type RegistryConfig struct {
	// RedirectURL must match the OAuth client's registered callback.
	RedirectURL string
	// Lookup reads client credentials; nil means the process environment.
	Lookup google.LookupFunc
	// HTTPClient is used for token endpoint and revocation calls.
	HTTPClient *http.Client
}

// Registry holds one Manager per Google service.
type Registry struct {
	managers map[google.Service]*Manager
}

var _ google.TokenProvider = (*Registry)(nil)

// NewRegistry resolves client credentials for every service and builds their
// managers. Every missing credential is reported at once as joined
// *google.ConfigurationError values.
func NewRegistry(st Store, cfg RegistryConfig, opts ...Option) (*Registry, error) {
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = google.DefaultRedirectURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = google.NewHTTPClient(google.DefaultHTTPTimeout)
	}

	var errs []error
	managers := make(map[google.Service]*Manager, len(google.Services()))
	for _, svc := range google.Services() {
		creds, err := google.ResolveClientCredentials(svc, cfg.Lookup)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		provider := NewGoogleProvider(google.NewOAuthConfig(svc, creds, cfg.RedirectURL), cfg.HTTPClient)
		managers[svc] = NewManager(svc, st, provider, opts...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Registry{managers: managers}, nil
}

// NewRegistryFromManagers builds a registry from prepared managers.
func NewRegistryFromManagers(managers ...*Manager) *Registry {
	r := &Registry{managers: make(map[google.Service]*Manager, len(managers))}
	for _, m := range managers {
		r.managers[m.Service()] = m
	}
	return r
}

// Manager returns the manager for svc.
func (r *Registry) Manager(svc google.Service) (*Manager, bool) {
	m, ok := r.managers[svc]
	return m, ok
}

// GetToken implements google.TokenProvider.
func (r *Registry) GetToken(ctx context.Context, svc google.Service, workspaceID string) (*oauth2.Token, error) {
	m, ok := r.managers[svc]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", svc)
	}
	creds, err := m.GetValidCredentials(ctx, workspaceID)
	if err != nil || creds == nil {
		return nil, err
	}
	return creds.Token(), nil
}

// ClearAll clears every Google credential of the workspace. Any manager can
// do it; the Gmail manager is used when present.
func (r *Registry) ClearAll(ctx context.Context, workspaceID string) (int64, error) {
	for _, svc := range google.Services() {
		if m, ok := r.managers[svc]; ok {
			return m.ClearAllCredentials(ctx, workspaceID)
		}
	}
	return 0, errors.New("no credential managers configured")
}
