package auth_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

const serviceLabel = "oauth"

func serviceDescription(required bool) mcp.PropertyOption {
	desc := fmt.Sprintf("Google service: %s", strings.Join(google.ServiceNames(), ", "))
	if !required {
		desc += ". Omit for all services."
	}
	return mcp.Description(desc)
}

// Register adds the credential tools to s.
func Register(s *mcpserver.MCPServer, sc *server.ServerContext) {
	s.AddTools(Tools(sc)...)
}

// Tools returns the credential tools bound to sc.
func Tools(sc *server.ServerContext) []mcpserver.ServerTool {
	authURLTool := mcp.NewTool("google_auth_url",
		mcp.WithDescription("Get the URL a user visits to grant this server access to a Google service for a workspace"),
		common.WithWorkspace(),
		mcp.WithString("service", mcp.Required(), serviceDescription(true)),
	)

	saveCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Exchange an authorization code for credentials, for clients that cannot reach the OAuth callback"),
		common.WithWorkspace(),
		mcp.WithString("service", mcp.Required(), serviceDescription(true)),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("The authorization code Google returned after consent"),
		),
	)

	statusTool := mcp.NewTool("google_credentials_status",
		mcp.WithDescription("Show which Google credentials are stored for a workspace, without refreshing them"),
		common.WithWorkspace(),
		mcp.WithString("service", serviceDescription(false)),
	)

	revokeTool := mcp.NewTool("google_revoke_credentials",
		mcp.WithDescription("Revoke a workspace's credentials for one Google service and delete them"),
		common.WithWorkspace(),
		mcp.WithString("service", mcp.Required(), serviceDescription(true)),
	)

	clearTool := mcp.NewTool("clear_google_credentials",
		mcp.WithDescription("Delete every stored Google credential of a workspace. Re-authorization is required afterwards."),
		common.WithWorkspace(),
	)

	return []mcpserver.ServerTool{
		{Tool: authURLTool, Handler: common.InstrumentedToolHandlerWithService("google_auth_url", serviceLabel, "auth_url", sc, handleAuthURL(sc))},
		{Tool: saveCodeTool, Handler: common.InstrumentedToolHandlerWithService("google_save_auth_code", serviceLabel, "exchange", sc, handleSaveCode(sc))},
		{Tool: statusTool, Handler: common.InstrumentedToolHandlerWithService("google_credentials_status", serviceLabel, "status", sc, handleStatus(sc))},
		{Tool: revokeTool, Handler: common.InstrumentedToolHandlerWithService("google_revoke_credentials", serviceLabel, "revoke", sc, handleRevoke(sc))},
		{Tool: clearTool, Handler: common.InstrumentedToolHandlerWithService("clear_google_credentials", serviceLabel, "clear", sc, handleClear(sc))},
	}
}

func managerFromArgs(sc *server.ServerContext, args map[string]any) (*credentials.Manager, error) {
	name, err := common.RequiredString(args, "service")
	if err != nil {
		return nil, err
	}
	svc, err := google.ParseService(name)
	if err != nil {
		return nil, err
	}
	return sc.Manager(svc)
}

func handleAuthURL(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		m, err := managerFromArgs(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ws, err := sc.ResolveWorkspace(ctx, common.WorkspaceFromArgs(args))
		if err != nil {
			return common.ErrorResult("failed to resolve workspace", err), nil
		}

		authURL := m.BuildAuthorizationURL(ws.Name)
		result := mcp.NewToolResultText(fmt.Sprintf(
			"Visit this URL to authorize %s access for workspace %q:\n\n%s\n\nAfter granting access the credentials are stored automatically.",
			m.Service(), ws.Name, authURL))
		result.StructuredContent = map[string]any{
			"service":           m.Service().String(),
			"workspace":         ws.Name,
			"authorization_url": authURL,
		}
		return result, nil
	}
}

func handleSaveCode(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		m, err := managerFromArgs(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		code, err := common.RequiredString(args, "code")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ws, err := sc.ResolveWorkspace(ctx, common.WorkspaceFromArgs(args))
		if err != nil {
			return common.ErrorResult("failed to resolve workspace", err), nil
		}

		result, err := m.ExchangeCodeForTokens(ctx, code, ws.ID)
		if err != nil {
			return common.ErrorResult("failed to exchange authorization code", err), nil
		}
		return common.JSONResult(fmt.Sprintf("%s credentials saved for workspace %q:", m.Service(), ws.Name), result), nil
	}
}

func handleStatus(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		services := google.Services()
		if name := common.StringArg(args, "service"); name != "" {
			svc, err := google.ParseService(name)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			services = []google.Service{svc}
		}

		ws, err := sc.ResolveWorkspace(ctx, common.WorkspaceFromArgs(args))
		if err != nil {
			return common.ErrorResult("failed to resolve workspace", err), nil
		}

		statuses := make([]*credentials.Status, 0, len(services))
		for _, svc := range services {
			m, err := sc.Manager(svc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			st, err := m.GetCredentialsStatus(ctx, ws.ID)
			if err != nil {
				return common.ErrorResult("failed to read credentials status", err), nil
			}
			statuses = append(statuses, st)
		}
		return common.JSONResult(fmt.Sprintf("Credentials for workspace %q:", ws.Name), statuses), nil
	}
}

func handleRevoke(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		m, err := managerFromArgs(sc, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ws, err := sc.ResolveWorkspace(ctx, common.WorkspaceFromArgs(args))
		if err != nil {
			return common.ErrorResult("failed to resolve workspace", err), nil
		}
		if err := m.RevokeCredentials(ctx, ws.ID); err != nil {
			return common.ErrorResult("failed to revoke credentials", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s credentials revoked for workspace %q.", m.Service(), ws.Name)), nil
	}
}

func handleClear(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ws, err := sc.ResolveWorkspace(ctx, common.WorkspaceFromArgs(request.GetArguments()))
		if err != nil {
			return common.ErrorResult("failed to resolve workspace", err), nil
		}
		n, err := sc.Registry().ClearAll(ctx, ws.ID)
		if err != nil {
			return common.ErrorResult("failed to clear credentials", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"Cleared %d Google credentials for workspace %q. Re-authorization required.", n, ws.Name)), nil
	}
}
