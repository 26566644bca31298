package docs_tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/docs"
	"github.com/oneplace/workspace-mcp/internal/drive"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

const serviceLabel = "docs"

// ExportedDocument is the result of docs_export_document.
type ExportedDocument struct {
	DocumentID string `json:"document_id"`
	Format     string `json:"format"`
	MimeType   string `json:"mime_type"`
	// Encoding is "text" or "base64".
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// Register adds the Docs tools to s.
func Register(s *mcpserver.MCPServer, sc *server.ServerContext) {
	s.AddTools(Tools(sc)...)
}

// Tools returns the Docs tools bound to sc.
func Tools(sc *server.ServerContext) []mcpserver.ServerTool {
	createTool := mcp.NewTool("docs_create_document",
		mcp.WithDescription("Create a new Google Doc, optionally with initial content"),
		common.WithWorkspace(),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title of the document"),
		),
		mcp.WithString("content",
			mcp.Description("Initial plain text content"),
		),
	)

	getTool := mcp.NewTool("docs_get_document",
		mcp.WithDescription("Get the title and plain text content of a Google Doc"),
		common.WithWorkspace(),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("The ID of the Google Doc"),
		),
	)

	updateTool := mcp.NewTool("docs_update_document",
		mcp.WithDescription("Replace the content of a Google Doc, or append to it"),
		common.WithWorkspace(),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("The ID of the Google Doc"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Plain text content"),
		),
		mcp.WithBoolean("append",
			mcp.Description("Append the content on a new line instead of replacing the body (default: false)"),
		),
	)

	listTool := mcp.NewTool("docs_list_documents",
		mcp.WithDescription("List recently modified Google Docs"),
		common.WithWorkspace(),
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Maximum number of documents to return (default: %d, max: %d)", drive.DefaultPageSize, drive.MaxPageSize)),
		),
	)

	searchTool := mcp.NewTool("docs_search_documents",
		mcp.WithDescription("Search Google Docs by title or content"),
		common.WithWorkspace(),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Maximum number of documents to return (default: %d, max: %d)", drive.DefaultPageSize, drive.MaxPageSize)),
		),
	)

	shareTool := mcp.NewTool("docs_share_document",
		mcp.WithDescription("Share a Google Doc with a user"),
		common.WithWorkspace(),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("The ID of the Google Doc"),
		),
		mcp.WithString("email_address",
			mcp.Required(),
			mcp.Description("Email address of the user to share with"),
		),
		mcp.WithString("role",
			mcp.Description("The role to grant: 'reader', 'commenter' or 'writer' (default: reader)"),
		),
		mcp.WithBoolean("send_notification",
			mcp.Description("Send a notification email (default: false)"),
		),
	)

	exportTool := mcp.NewTool("docs_export_document",
		mcp.WithDescription("Export a Google Doc to another format"),
		common.WithWorkspace(),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("The ID of the Google Doc"),
		),
		mcp.WithString("format",
			mcp.Required(),
			mcp.Description("Export format: "+strings.Join(docs.ExportFormatNames(), ", ")),
		),
	)

	return []mcpserver.ServerTool{
		{Tool: createTool, Handler: instrumented("docs_create_document", "create", sc, handleCreate(sc))},
		{Tool: getTool, Handler: instrumented("docs_get_document", "get", sc, handleGet(sc))},
		{Tool: updateTool, Handler: instrumented("docs_update_document", "update", sc, handleUpdate(sc))},
		{Tool: listTool, Handler: instrumented("docs_list_documents", "list", sc, handleList(sc))},
		{Tool: searchTool, Handler: instrumented("docs_search_documents", "search", sc, handleSearch(sc))},
		{Tool: shareTool, Handler: instrumented("docs_share_document", "share", sc, handleShare(sc))},
		{Tool: exportTool, Handler: instrumented("docs_export_document", "export", sc, handleExport(sc))},
	}
}

func instrumented(name, op string, sc *server.ServerContext, h mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return common.InstrumentedToolHandlerWithService(name, serviceLabel, op, sc, h)
}

func getDocsClient(ctx context.Context, sc *server.ServerContext, args map[string]any) (*docs.Client, error) {
	tok, err := common.ValidToken(ctx, sc, google.ServiceDocs, common.WorkspaceFromArgs(args))
	if err != nil {
		return nil, err
	}
	return sc.DocsClient(ctx, tok)
}

func handleCreate(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		title, err := common.RequiredString(args, "title")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getDocsClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Docs client", err), nil
		}

		doc, err := client.CreateDocument(ctx, title, common.StringArg(args, "content"))
		if err != nil {
			return common.ErrorResult("failed to create document", err), nil
		}
		return common.JSONResult("Document created successfully:", doc), nil
	}
}

func handleGet(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id, err := common.RequiredString(args, "document_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getDocsClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Docs client", err), nil
		}

		doc, err := client.GetDocument(ctx, id)
		if err != nil {
			return common.ErrorResult("failed to get document", err), nil
		}
		return common.JSONResult("", doc), nil
	}
}

func handleUpdate(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id, err := common.RequiredString(args, "document_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := common.RequiredString(args, "content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		appendContent := common.BoolArg(args, "append", false)

		client, err := getDocsClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Docs client", err), nil
		}

		if err := client.UpdateDocument(ctx, id, content, appendContent); err != nil {
			return common.ErrorResult("failed to update document", err), nil
		}
		verb := "replaced"
		if appendContent {
			verb = "appended"
		}
		return mcp.NewToolResultText(fmt.Sprintf("Content %s in document %s: %s", verb, id, docs.DocumentURL(id))), nil
	}
}

func documentsResult(files []*drive.FileInfo) *mcp.CallToolResult {
	if len(files) == 0 {
		return mcp.NewToolResultText("No documents found.")
	}
	return common.JSONResult(fmt.Sprintf("Found %d documents:", len(files)), files)
}

func handleList(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		client, err := getDocsClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Docs client", err), nil
		}

		files, err := client.ListDocuments(ctx, common.IntArg(args, "max_results", drive.DefaultPageSize, drive.MaxPageSize))
		if err != nil {
			return common.ErrorResult("failed to list documents", err), nil
		}
		return documentsResult(files), nil
	}
}

func handleSearch(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		term, err := common.RequiredString(args, "term")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getDocsClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Docs client", err), nil
		}

		files, err := client.SearchDocuments(ctx, term, common.IntArg(args, "max_results", drive.DefaultPageSize, drive.MaxPageSize))
		if err != nil {
			return common.ErrorResult("failed to search documents", err), nil
		}
		return documentsResult(files), nil
	}
}

func handleShare(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id, err := common.RequiredString(args, "document_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		email, err := common.RequiredString(args, "email_address")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getDocsClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Docs client", err), nil
		}

		perm, err := client.ShareDocument(ctx, id, email, common.StringArg(args, "role"), common.BoolArg(args, "send_notification", false))
		if err != nil {
			return common.ErrorResult("failed to share document", err), nil
		}
		return common.JSONResult("Document shared successfully:", perm), nil
	}
}

func handleExport(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id, err := common.RequiredString(args, "document_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format, err := common.RequiredString(args, "format")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format = strings.ToLower(format)
		if _, ok := docs.ExportFormats[format]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unsupported export format %q (supported: %s)",
				format, strings.Join(docs.ExportFormatNames(), ", "))), nil
		}

		client, err := getDocsClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Docs client", err), nil
		}

		data, mimeType, err := client.ExportDocument(ctx, id, format)
		if err != nil {
			return common.ErrorResult("failed to export document", err), nil
		}

		out := &ExportedDocument{DocumentID: id, Format: format, MimeType: mimeType, Encoding: "base64"}
		if strings.HasPrefix(mimeType, "text/") {
			out.Encoding = "text"
			out.Content = string(data)
		} else {
			out.Content = base64.StdEncoding.EncodeToString(data)
		}
		return common.JSONResult("Document exported:", out), nil
	}
}
