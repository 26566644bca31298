package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/oauth2"

	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
)

// NoCredentialsError reports that a workspace has no usable credential for
// a service. AuthURL is where the user can grant access.
type NoCredentialsError struct {
	Service   google.Service
	Workspace string
	AuthURL   string
}

func (e *NoCredentialsError) Error() string {
	return fmt.Sprintf("no valid %s credentials for workspace %q", e.Service, e.Workspace)
}

// Result renders the error as a tool error whose structured content carries
// the authorization URL.
func (e *NoCredentialsError) Result() *mcp.CallToolResult {
	text := e.Error()
	if e.AuthURL != "" {
		text += fmt.Sprintf(". Authorize access by visiting: %s", e.AuthURL)
	}
	result := mcp.NewToolResultError(text)
	result.StructuredContent = map[string]any{
		"error":             "no_credentials",
		"service":           e.Service.String(),
		"workspace":         e.Workspace,
		"authorization_url": e.AuthURL,
	}
	return result
}

// ValidToken resolves the workspace by name and returns a usable token for
// svc from the server's token provider. When there is none the error is a
// *NoCredentialsError.
func ValidToken(ctx context.Context, sc *server.ServerContext, svc google.Service, workspace string) (*oauth2.Token, error) {
	m, err := sc.Manager(svc)
	if err != nil {
		return nil, err
	}
	ws, err := sc.ResolveWorkspace(ctx, workspace)
	if err != nil {
		return nil, err
	}
	tok, err := sc.Tokens().GetToken(ctx, svc, ws.ID)
	if err != nil {
		return nil, fmt.Errorf("load %s credentials: %w", svc, err)
	}
	if tok == nil {
		return nil, &NoCredentialsError{
			Service:   svc,
			Workspace: ws.Name,
			AuthURL:   m.BuildAuthorizationURL(ws.Name),
		}
	}
	return tok, nil
}

// ErrorResult converts err into a tool error result. Missing credentials
// keep their structured form; anything else is prefixed with msg.
func ErrorResult(msg string, err error) *mcp.CallToolResult {
	var nc *NoCredentialsError
	if errors.As(err, &nc) {
		return nc.Result()
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", msg, err))
}

// JSONResult renders v as indented JSON after a heading line.
func JSONResult(heading string, v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	if heading == "" {
		return mcp.NewToolResultText(string(data))
	}
	return mcp.NewToolResultText(heading + "\n" + string(data))
}
