// Package drive_tools provides the Google Drive MCP tools.
//
// Available tools:
//   - drive_list_files: List files, optionally filtered with a Drive query
//   - drive_search_files: Search file names and content
//   - drive_upload_file: Upload text or base64-encoded content
//   - drive_download_file: Download file content, base64-encoded unless it is text
//   - drive_create_folder: Create a folder
//   - drive_share_file: Grant a permission on a file
//
// Every tool takes an optional 'workspace' argument naming the workspace
// whose Drive credentials are used. Without stored credentials the tools
// return an error result carrying the authorization URL.
//
// Example tool usage:
//
//	drive_list_files({
//	  workspace: "acme",
//	  query: "mimeType='application/pdf' and name contains 'invoice'",
//	  max_results: 10
//	})
package drive_tools
