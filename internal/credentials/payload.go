package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/oauth2"
)

// ErrMalformedPayload is returned by ParseCredentials for a stored payload
// that cannot be used. Callers treat it as "no credentials".
var ErrMalformedPayload = errors.New("malformed credential payload")

// expiryDelta matches golang.org/x/oauth2: a token this close to expiry is
// already treated as expired.
const expiryDelta = 10 * time.Second

// naiveTimestamp is an ISO-8601 timestamp without a zone, as written by
// Python's datetime.isoformat() on a naive UTC value.
const naiveTimestamp = "2006-01-02T15:04:05.999999999"

// Credentials is the typed form of a stored auth payload.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	// Expiry is zero when the provider did not report one.
	Expiry time.Time
	Scopes []string
}

type payload struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	Expiry       *string  `json:"expiry"`
	Scopes       []string `json:"scopes"`
}

// ParseCredentials decodes a stored auth payload. Every failure wraps
// ErrMalformedPayload.
func ParseCredentials(raw string) (*Credentials, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedPayload)
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrMalformedPayload)
	}

	c := &Credentials{
		AccessToken:  p.Token,
		RefreshToken: p.RefreshToken,
		Scopes:       p.Scopes,
	}
	if p.Expiry != nil && *p.Expiry != "" {
		t, err := parseExpiry(*p.Expiry)
		if err != nil {
			return nil, fmt.Errorf("%w: expiry: %v", ErrMalformedPayload, err)
		}
		c.Expiry = t
	}
	return c, nil
}

func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(naiveTimestamp, s, time.UTC)
}

// Encode returns the stored form of c.
func (c *Credentials) Encode() (string, error) {
	p := payload{
		Token:        c.AccessToken,
		RefreshToken: c.RefreshToken,
		Scopes:       c.Scopes,
	}
	if p.Scopes == nil {
		p.Scopes = []string{}
	}
	if !c.Expiry.IsZero() {
		s := c.Expiry.UTC().Format(time.RFC3339Nano)
		p.Expiry = &s
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}
	return string(b), nil
}

// Expired reports whether the access token is expired at now.
// Credentials without an expiry never expire.
func (c *Credentials) Expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return c.Expiry.Add(-expiryDelta).Before(now)
}

// Token returns c as an oauth2 token for use with Google API clients.
func (c *Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// Clone returns a deep copy of c.
func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return nil
	}
	out := *c
	out.Scopes = slices.Clone(c.Scopes)
	return &out
}

// fromToken builds credentials from a provider token. Scopes are the ones
// requested for the service. fallbackRefresh is kept when the provider did
// not rotate the refresh token.
func fromToken(tok *oauth2.Token, scopes []string, fallbackRefresh string) *Credentials {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	return &Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		Expiry:       tok.Expiry.UTC(),
		Scopes:       slices.Clone(scopes),
	}
}
