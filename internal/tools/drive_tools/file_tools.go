package drive_tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/drive"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/common"
)

// MaxDownloadSize caps the content drive_download_file returns inline.
const MaxDownloadSize = 10 << 20

// DownloadedFile is the result of drive_download_file.
type DownloadedFile struct {
	File *drive.FileInfo `json:"file"`
	// Encoding is "text" or "base64".
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

func fileTools(sc *server.ServerContext) []mcpserver.ServerTool {
	listFilesTool := mcp.NewTool("drive_list_files",
		mcp.WithDescription("List files in Google Drive with optional filtering"),
		common.WithWorkspace(),
		mcp.WithString("query",
			mcp.Description("Query for filtering files using Google Drive's query language (e.g., \"name contains 'report'\", \"mimeType='application/pdf'\")"),
		),
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Maximum number of files to return (default: %d, max: %d)", drive.DefaultPageSize, drive.MaxPageSize)),
		),
		mcp.WithString("order_by",
			mcp.Description("Sort order (e.g., 'folder,modifiedTime desc,name')"),
		),
	)

	searchFilesTool := mcp.NewTool("drive_search_files",
		mcp.WithDescription("Search Google Drive for files whose name or content contains a term"),
		common.WithWorkspace(),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithString("mime_type",
			mcp.Description("Restrict results to one MIME type (e.g., 'application/pdf')"),
		),
		mcp.WithNumber("max_results",
			mcp.Description(fmt.Sprintf("Maximum number of files to return (default: %d, max: %d)", drive.DefaultPageSize, drive.MaxPageSize)),
		),
	)

	uploadFileTool := mcp.NewTool("drive_upload_file",
		mcp.WithDescription("Upload a file to Google Drive"),
		common.WithWorkspace(),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The name of the file"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The file content (plain text, or base64-encoded when is_base64 is true)"),
		),
		mcp.WithBoolean("is_base64",
			mcp.Description("Whether the content is base64-encoded (default: false)"),
		),
		mcp.WithString("mime_type",
			mcp.Description("The MIME type of the file (e.g., 'application/pdf', 'text/plain', 'image/png')"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the folder to place the file in"),
		),
		mcp.WithString("description",
			mcp.Description("A short description of the file"),
		),
	)

	downloadFileTool := mcp.NewTool("drive_download_file",
		mcp.WithDescription(fmt.Sprintf("Download the content of a file from Google Drive (up to %d MiB)", MaxDownloadSize>>20)),
		common.WithWorkspace(),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The ID of the file to download"),
		),
	)

	return []mcpserver.ServerTool{
		{Tool: listFilesTool, Handler: instrumented("drive_list_files", "list", sc, handleListFiles(sc))},
		{Tool: searchFilesTool, Handler: instrumented("drive_search_files", "search", sc, handleSearchFiles(sc))},
		{Tool: uploadFileTool, Handler: instrumented("drive_upload_file", "upload", sc, handleUploadFile(sc))},
		{Tool: downloadFileTool, Handler: instrumented("drive_download_file", "download", sc, handleDownloadFile(sc))},
	}
}

func filesResult(files []*drive.FileInfo) *mcp.CallToolResult {
	if len(files) == 0 {
		return mcp.NewToolResultText("No files found.")
	}
	return common.JSONResult(fmt.Sprintf("Found %d files:", len(files)), files)
}

func handleListFiles(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		client, err := getDriveClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Drive client", err), nil
		}

		files, err := client.ListFiles(ctx, drive.ListOptions{
			Query:    common.StringArg(args, "query"),
			PageSize: common.IntArg(args, "max_results", drive.DefaultPageSize, drive.MaxPageSize),
			OrderBy:  common.StringArg(args, "order_by"),
		})
		if err != nil {
			return common.ErrorResult("failed to list files", err), nil
		}
		return filesResult(files), nil
	}
}

func handleSearchFiles(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		term, err := common.RequiredString(args, "term")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := getDriveClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Drive client", err), nil
		}

		files, err := client.SearchFiles(ctx, term, common.StringArg(args, "mime_type"),
			common.IntArg(args, "max_results", drive.DefaultPageSize, drive.MaxPageSize))
		if err != nil {
			return common.ErrorResult("failed to search files", err), nil
		}
		return filesResult(files), nil
	}
}

func handleUploadFile(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		name, err := common.RequiredString(args, "name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		contentStr, err := common.RequiredString(args, "content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var content io.Reader = strings.NewReader(contentStr)
		if common.BoolArg(args, "is_base64", false) {
			decoded, err := base64.StdEncoding.DecodeString(contentStr)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to decode base64 content: %v", err)), nil
			}
			content = bytes.NewReader(decoded)
		}

		client, err := getDriveClient(ctx, sc, args)
		if err != nil {
			return common.ErrorResult("failed to create Drive client", err), nil
		}

		info, err := client.UploadFile(ctx, name, content, drive.UploadOptions{
			ParentID:    common.StringArg(args, "parent_id"),
			Description: common.StringArg(args, "description"),
			MimeType:    common.StringArg(args, "mime_type"),
		})
		if err != nil {
			return common.ErrorResult("failed to upload file", err), nil
		}
		return common.JSONResult("File uploaded successfully:", info), nil
	}
}

func handleDownloadFile(sc *server.ServerContext) mcpserver.ToolHandlerFunc {
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

		dl, err := client.DownloadFile(ctx, fileID)
		if err != nil {
			return common.ErrorResult("failed to download file", err), nil
		}
		defer dl.Body.Close()

		data, err := io.ReadAll(io.LimitReader(dl.Body, MaxDownloadSize+1))
		if err != nil {
			return common.ErrorResult("failed to read file content", err), nil
		}
		if len(data) > MaxDownloadSize {
			return mcp.NewToolResultError(fmt.Sprintf("file %s is larger than %d MiB", fileID, MaxDownloadSize>>20)), nil
		}

		out := &DownloadedFile{File: dl.File, Encoding: "base64", Content: base64.StdEncoding.EncodeToString(data)}
		if isText(dl.File.MimeType) {
			out.Encoding = "text"
			out.Content = string(data)
		}
		return common.JSONResult("File downloaded:", out), nil
	}
}

func isText(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/json", mimeType == "application/xml":
		return true
	}
	return false
}
