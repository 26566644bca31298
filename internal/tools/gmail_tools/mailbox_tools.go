package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/gmail"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

// mailbox is a tool listing the messages of one system label.
type mailbox struct {
	name        string
	description string
	label       string
	// query allows an extra Gmail search filter.
	query bool
}

var mailboxes = []mailbox{
	{name: "gmail_read_inbox", description: "Read recent messages from the Gmail inbox", label: gmail.LabelInbox, query: true},
	{name: "gmail_check_sent", description: "List recently sent messages", label: gmail.LabelSent},
	{name: "gmail_check_drafts", description: "List draft messages", label: gmail.LabelDraft},
	{name: "gmail_check_promotions", description: "List messages in the Promotions category", label: gmail.LabelPromotions},
	{name: "gmail_check_important", description: "List messages Gmail marked as important", label: gmail.LabelImportant},
}

func withListOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Maximum number of messages to return (default: %d, max: %d)", gmail.DefaultMaxResults, gmail.MaxPageSize)),
		),
		mcp.WithBoolean("include_body",
			mcp.Description("Include the plain text body of each message (default: false)"),
		),
	}
}

func mailboxTools(sc *server.ServerContext) []mcpserver.ServerTool {
	tools := make([]mcpserver.ServerTool, 0, len(mailboxes))
	for _, mb := range mailboxes {
		opts := []mcp.ToolOption{mcp.WithDescription(mb.description), common.WithWorkspace()}
		if mb.query {
			opts = append(opts, mcp.WithString("query",
				mcp.Description("Optional Gmail search filter (e.g., 'is:unread', 'from:user@example.com')"),
			))
		}
		opts = append(opts, withListOptions()...)

		tools = append(tools, mcpserver.ServerTool{
			Tool:    mcp.NewTool(mb.name, opts...),
			Handler: common.InstrumentedToolHandlerWithService(mb.name, google.ServiceGmail.String(), "list", sc, handleList(sc, mb.label, false)),
		})
	}
	return tools
}

func searchTool(sc *server.ServerContext) mcpserver.ServerTool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Search Gmail messages with Gmail's query syntax"),
		common.WithWorkspace(),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail search query (e.g., 'subject:invoice after:2024/01/01')"),
		),
	}
	opts = append(opts, withListOptions()...)
	return mcpserver.ServerTool{
		Tool:    mcp.NewTool("gmail_search_emails", opts...),
		Handler: common.InstrumentedToolHandlerWithService("gmail_search_emails", google.ServiceGmail.String(), "search", sc, handleList(sc, "", true)),
	}
}

func handleList(sc *server.ServerContext, label string, queryRequired bool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		opts := gmail.ListOptions{
			Query:       common.StringArg(args, "query"),
			MaxResults:  common.IntArg(args, "max_results", gmail.DefaultMaxResults, gmail.MaxPageSize),
			IncludeBody: common.BoolArg(args, "include_body", false),
		}
		if queryRequired && opts.Query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		if label != "" {
			opts.Labels = []string{label}
		}

		client, err := getGmailClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Gmail client", err), nil
		}

		msgs, err := client.ListMessages(ctx, opts)
		if err != nil {
			return common.ErrorResult("failed to list messages", err), nil
		}
		if len(msgs) == 0 {
			return mcp.NewToolResultText("No messages found."), nil
		}
		return common.JSONResult(fmt.Sprintf("Found %d messages:", len(msgs)), msgs), nil
	}
}
