package gmail_tools

import (
	"context"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/gmail"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

// Register adds the Gmail tools to s.
func Register(s *mcpserver.MCPServer, sc *server.ServerContext) {
	s.AddTools(Tools(sc)...)
}

// Tools returns the Gmail tools bound to sc.
func Tools(sc *server.ServerContext) []mcpserver.ServerTool {
	tools := mailboxTools(sc)
	tools = append(tools, searchTool(sc), sendEmailTool(sc))
	return tools
}

// getGmailClient builds a client for the workspace named in args.
func getGmailClient(ctx context.Context, sc *server.ServerContext, args map[string]any) (*gmail.Client, error) {
	tok, err := common.ValidToken(ctx, sc, google.ServiceGmail, common.WorkspaceFromArgs(args))
	if err != nil {
		return nil, err
	}
	return sc.GmailClient(ctx, tok)
}
