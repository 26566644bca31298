package credentials

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/oneplace/workspace-mcp/internal/google"
)

// AuthExchangeError reports that the provider rejected an authorization code.
// It is returned to the caller as-is and never retried.
type AuthExchangeError struct {
	Service google.Service
	Err     error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("%s authorization code exchange failed: %v", e.Service, e.Err)
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}

// isProviderRejection reports whether err is the token endpoint refusing the
// grant (invalid_grant, revoked client, ...), as opposed to the endpoint
// being unreachable or failing.
func isProviderRejection(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if re.Response == nil {
		return re.ErrorCode != ""
	}
	return re.Response.StatusCode >= http.StatusBadRequest && re.Response.StatusCode < http.StatusInternalServerError
}
