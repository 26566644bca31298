// Package cmd implements the command-line interface for workspace-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server, plus the HTTP API in streamable-http mode
//   - migrate: Apply or inspect the embedded database migrations
//   - credentials: List or clear stored Google credentials
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
