package drive_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/drive"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

func shareTools(sc *server.ServerContext) []mcpserver.ServerTool {
	shareFileTool := mcp.NewTool("drive_share_file",
		mcp.WithDescription("Share a file in Google Drive by granting a permission"),
		common.WithWorkspace(),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to share"),
		),
		mcp.WithString("type",
			mcp.Description("The type of grantee: 'user', 'group', 'domain', or 'anyone' (default: user)"),
		),
		mcp.WithString("role",
			mcp.Description("The role to grant: 'owner', 'organizer', 'fileOrganizer', 'writer', 'commenter', or 'reader' (default: reader)"),
		),
		mcp.WithString("email_address",
			mcp.Description("Email address (required if type is 'user' or 'group')"),
		),
		mcp.WithString("domain",
			mcp.Description("Domain name (required if type is 'domain')"),
		),
		mcp.WithBoolean("send_notification",
			mcp.Description("Send a notification email to the grantee (default: false)"),
		),
	)

	return []mcpserver.ServerTool{
		{Tool: shareFileTool, Handler: instrumented("drive_share_file", "share", sc, handleShareFile(sc))},
	}
}

func handleShareFile(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		fileID, err := common.RequiredString(args, "file_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getDriveClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Drive client", err), nil
		}

		perm, err := client.ShareFile(ctx, fileID, drive.ShareOptions{
			Type:                  common.StringArg(args, "type"),
			Role:                  common.StringArg(args, "role"),
			EmailAddress:          common.StringArg(args, "email_address"),
			Domain:                common.StringArg(args, "domain"),
			SendNotificationEmail: common.BoolArg(args, "send_notification", false),
		})
		if err != nil {
			return common.ErrorResult("failed to share file", err), nil
		}
		return common.JSONResult("File shared successfully:", perm), nil
	}
}
