package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

// Scheme is the URI scheme of workspace resources.
const Scheme = "workspace://"

const mimeJSON = "application/json"

// Register adds the workspace resource templates to s.
func Register(s *mcpserver.MCPServer, sc *server.ServerContext) {
	credentialsTemplate := mcp.NewResourceTemplate(
		Scheme+"{workspace}/credentials",
		"Workspace Credentials",
		mcp.WithTemplateDescription("Google credential status of every service for a workspace"),
		mcp.WithTemplateMIMEType(mimeJSON),
	)
	s.AddResourceTemplate(credentialsTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCredentials(ctx, request, sc)
	})

	profileTemplate := mcp.NewResourceTemplate(
		Scheme+"{workspace}/gmail/profile",
		"Gmail Profile",
		mcp.WithTemplateDescription("Address of the Gmail mailbox authorized for a workspace"),
		mcp.WithTemplateMIMEType(mimeJSON),
	)
	s.AddResourceTemplate(profileTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleGmailProfile(ctx, request, sc)
	})
}

// parseURI splits workspace://{workspace}/{path}.
func parseURI(uri string) (workspace, path string, err error) {
	rest, ok := strings.CutPrefix(uri, Scheme)
	if !ok {
		return "", "", fmt.Errorf("unsupported resource URI %q", uri)
	}
	name, path, _ := strings.Cut(rest, "/")
	workspace, err = url.PathUnescape(name)
	if err != nil {
		return "", "", fmt.Errorf("invalid workspace in %q: %w", uri, err)
	}
	if workspace == "" {
		return "", "", fmt.Errorf("resource URI %q names no workspace", uri)
	}
	return workspace, path, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{URI: uri, MIMEType: mimeJSON, Text: string(data)},
	}, nil
}

func handleCredentials(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	name, _, err := parseURI(request.Params.URI)
	if err != nil {
		return nil, err
	}
	ws, err := sc.ResolveWorkspace(ctx, name)
	if err != nil {
		return nil, err
	}

	statuses := make([]*credentials.Status, 0, len(google.Services()))
	for _, svc := range google.Services() {
		m, err := sc.Manager(svc)
		if err != nil {
			return nil, err
		}
		st, err := m.GetCredentialsStatus(ctx, ws.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s credentials status: %w", svc, err)
		}
		statuses = append(statuses, st)
	}

	return jsonContents(request.Params.URI, map[string]any{
		"workspace_id": ws.ID,
		"workspace":    ws.Name,
		"services":     statuses,
	})
}

func handleGmailProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	name, _, err := parseURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	tok, err := common.ValidToken(ctx, sc, google.ServiceGmail, name)
	if err != nil {
		return nil, err
	}
	client, err := sc.GmailClient(ctx, tok)
	if err != nil {
		return nil, err
	}
	email, err := client.Profile(ctx)
	if err != nil {
		return nil, err
	}

	return jsonContents(request.Params.URI, map[string]string{
		"workspace": name,
		"email":     email,
	})
}
