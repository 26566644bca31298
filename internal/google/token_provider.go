package google

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider supplies OAuth tokens for Google API clients.
type TokenProvider interface {
	// GetToken returns a usable token for the workspace, or nil when the
	// workspace has not authorized the service. Errors are infrastructure
	// failures only.
	GetToken(ctx context.Context, svc Service, workspaceID string) (*oauth2.Token, error)
}
