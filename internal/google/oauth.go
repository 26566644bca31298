package google

import (
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Generic client credential variables used when a service has no pair of its own.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
)

const (
	// AuthURLPrefix is the consent endpoint every authorization URL starts with.
	AuthURLPrefix = "https://accounts.google.com/o/oauth2/auth"

	// RevokeURL is Google's RFC 7009 token revocation endpoint.
	RevokeURL = "https://oauth2.googleapis.com/revoke"

	// DefaultRedirectURL is used when GOOGLE_REDIRECT_URI is not set.
	DefaultRedirectURL = "https://oneplace-api.speakmulti.com/api/google/callback"
)

// LookupFunc reads a configuration value. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ClientCredentials is an OAuth client id/secret pair and where it came from.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	// Source is the variable prefix the pair was read from, e.g. GMAIL or GOOGLE.
	Source string
}

// ResolveClientCredentials returns the client pair for svc. The
// service-specific pair wins when both halves are set; otherwise the generic
// GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET pair is used.
func ResolveClientCredentials(svc Service, lookup LookupFunc) (ClientCredentials, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	idKey, secretKey := svc.ClientEnv()

	id, secret := value(lookup, idKey), value(lookup, secretKey)
	if id != "" && secret != "" {
		return ClientCredentials{ClientID: id, ClientSecret: secret, Source: strings.TrimSuffix(idKey, "_CLIENT_ID")}, nil
	}

	gid, gsecret := value(lookup, EnvClientID), value(lookup, EnvClientSecret)
	if gid != "" && gsecret != "" {
		return ClientCredentials{ClientID: gid, ClientSecret: gsecret, Source: "GOOGLE"}, nil
	}

	var missing []string
	if id == "" {
		missing = append(missing, idKey)
	}
	if secret == "" {
		missing = append(missing, secretKey)
	}
	if gid == "" {
		missing = append(missing, EnvClientID)
	}
	if gsecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	return ClientCredentials{}, &ConfigurationError{Service: svc, Missing: missing}
}

func value(lookup LookupFunc, key string) string {
	v, _ := lookup(key)
	return v
}

// NewOAuthConfig returns the oauth2 configuration for svc. The redirect URL
// must be identical for building the consent URL and exchanging the code.
func NewOAuthConfig(svc Service, creds ClientCredentials, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       svc.Scopes(),
	}
}

// DefaultHTTPTimeout bounds token endpoint and revocation calls.
const DefaultHTTPTimeout = 30 * time.Second

// NewHTTPClient returns the client used for token endpoint calls.
// The transport speaks HTTP/1.1 only, like the API clients.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			ForceAttemptHTTP2:   false,
			MaxIdleConns:        20,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
