package drive_tools

import (
	"context"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/drive"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

const serviceLabel = "drive"

// Register adds the Drive tools to s.
func Register(s *mcpserver.MCPServer, sc *server.ServerContext) {
	s.AddTools(Tools(sc)...)
}

// Tools returns the Drive tools bound to sc.
func Tools(sc *server.ServerContext) []mcpserver.ServerTool {
	var tools []mcpserver.ServerTool
	tools = append(tools, fileTools(sc)...)
	tools = append(tools, folderTools(sc)...)
	tools = append(tools, shareTools(sc)...)
	return tools
}

// getDriveClient builds a client for the workspace named in args.
func getDriveClient(ctx context.Context, sc *server.ServerContext, args map[string]any) (*drive.Client, error) {
	tok, err := common.ValidToken(ctx, sc, google.ServiceDrive, common.WorkspaceFromArgs(args))
	if err != nil {
		return nil, err
	}
	return sc.DriveClient(ctx, tok)
}

func instrumented(name, op string, sc *server.ServerContext, h mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return common.InstrumentedToolHandlerWithService(name, serviceLabel, op, sc, h)
}
