// Package docs_tools provides the Google Docs MCP tools: creating, reading,
// updating, listing, searching, sharing and exporting documents.
//
// Every tool takes an optional 'workspace' argument naming the workspace
// whose Docs credentials are used.
package docs_tools
