package google

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewAPIHTTPClient returns an HTTP client that authorizes requests with ts.
// Like the token endpoint client it speaks HTTP/1.1 only.
func NewAPIHTTPClient(ts oauth2.TokenSource) *http.Client {
	return &http.Client{
		Timeout: 2 * DefaultHTTPTimeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				ForceAttemptHTTP2:   false,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// StaticTokenSource returns a token source that always yields tok. Refresh
// belongs to the credential manager, so API clients never refresh on their own.
func StaticTokenSource(tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(tok)
}
