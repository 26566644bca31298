package gmail_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/gmail"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

func sendEmailTool(sc *server.ServerContext) mcpserver.ServerTool {
	tool := mcp.NewTool("gmail_send_email",
		mcp.WithDescription("Send an email through Gmail"),
		common.WithWorkspace(),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithBoolean("is_html",
			mcp.Description("Whether the body is HTML (default: false for plain text)"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: common.InstrumentedToolHandlerWithService("gmail_send_email", google.ServiceGmail.String(), "send", sc, handleSendEmail(sc)),
	}
}

func handleSendEmail(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		msg := &gmail.EmailMessage{
			To:      common.ListArg(args, "to"),
			Cc:      common.ListArg(args, "cc"),
			Bcc:     common.ListArg(args, "bcc"),
			Subject: common.StringArg(args, "subject"),
			Body:    common.StringArg(args, "body"),
			IsHTML:  common.BoolArg(args, "is_html", false),
		}
		// Reject before touching credentials.
		if err := msg.Validate(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getGmailClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Gmail client", err), nil
		}

		sent, err := client.SendEmail(ctx, msg)
		if err != nil {
			return common.ErrorResult("failed to send email", err), nil
		}
		return common.JSONResult("Email sent successfully:", sent), nil
	}
}
