package drive_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

func folderTools(sc *server.ServerContext) []mcpserver.ServerTool {
	createFolderTool := mcp.NewTool("drive_create_folder",
		mcp.WithDescription("Create a new folder in Google Drive"),
		common.WithWorkspace(),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The name of the folder"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the parent folder (default: My Drive root)"),
		),
	)

	return []mcpserver.ServerTool{
		{Tool: createFolderTool, Handler: instrumented("drive_create_folder", "create_folder", sc, handleCreateFolder(sc))},
	}
}

func handleCreateFolder(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		name, err := common.RequiredString(args, "name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getDriveClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Drive client", err), nil
		}

		folder, err := client.CreateFolder(ctx, name, common.StringArg(args, "parent_id"))
		if err != nil {
			return common.ErrorResult("failed to create folder", err), nil
		}
		return common.JSONResult("Folder created successfully:", folder), nil
	}
}
