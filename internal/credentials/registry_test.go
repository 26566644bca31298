package credentials

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneplace/workspace-mcp/internal/google"
)

func envLookup(m map[string]string) google.LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(newMemStore(), RegistryConfig{
		RedirectURL: "https://example.test/api/google/callback",
		Lookup: envLookup(map[string]string{
			"GOOGLE_CLIENT_ID":     "generic-id",
			"GOOGLE_CLIENT_SECRET": "generic-secret",
			"GDOCS_CLIENT_ID":      "docs-id",
			"GDOCS_CLIENT_SECRET":  "docs-secret",
		}),
	}, WithLogger(discardLogger()))
	require.NoError(t, err)

	for _, svc := range google.Services() {
		m, ok := reg.Manager(svc)
		require.True(t, ok, svc)
		assert.Equal(t, svc, m.Service())
	}

	docs, _ := reg.Manager(google.ServiceDocs)
	u, err := url.Parse(docs.BuildAuthorizationURL("acme"))
	require.NoError(t, err)
	assert.Equal(t, "docs-id", u.Query().Get("client_id"))
	assert.Equal(t, "https://example.test/api/google/callback", u.Query().Get("redirect_uri"))
	assert.Equal(t, google.ServiceDocs.Scopes()[0], u.Query().Get("scope"))

	gmail, _ := reg.Manager(google.ServiceGmail)
	u, err = url.Parse(gmail.BuildAuthorizationURL("acme"))
	require.NoError(t, err)
	assert.Equal(t, "generic-id", u.Query().Get("client_id"))
}

func TestNewRegistry_MissingCredentials(t *testing.T) {
	_, err := NewRegistry(newMemStore(), RegistryConfig{
		Lookup: envLookup(map[string]string{
			"GMAIL_CLIENT_ID":     "gid",
			"GMAIL_CLIENT_SECRET": "gsecret",
		}),
	})
	require.Error(t, err)

	var cfgErr *google.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), `"drive"`)
	assert.Contains(t, err.Error(), `"docs"`)
	assert.NotContains(t, err.Error(), `"gmail"`)
}

func TestRegistry_GetToken(t *testing.T) {
	f := newFixture(t, google.ServiceGmail)
	reg := NewRegistryFromManagers(f.manager)
	ctx := context.Background()

	tok, err := reg.GetToken(ctx, google.ServiceGmail, testWorkspace)
	require.NoError(t, err)
	assert.Nil(t, tok, "unauthorized workspace has no token")

	f.seed(t, &Credentials{AccessToken: "at", RefreshToken: "rt", Expiry: f.clock.Now().Add(time.Hour), Scopes: gmailScopes()})
	tok, err = reg.GetToken(ctx, google.ServiceGmail, testWorkspace)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)

	_, err = reg.GetToken(ctx, google.ServiceDrive, testWorkspace)
	assert.Error(t, err)
}

func TestRegistry_ClearAll(t *testing.T) {
	f := newFixture(t, google.ServiceGmail)
	f.seed(t, &Credentials{AccessToken: "at", Scopes: gmailScopes()})

	n, err := NewRegistryFromManagers(f.manager).ClearAll(context.Background(), testWorkspace)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = NewRegistryFromManagers().ClearAll(context.Background(), testWorkspace)
	assert.Error(t, err)
}
