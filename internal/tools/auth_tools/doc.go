// Package auth_tools provides the MCP tools that manage Google credentials
// of a workspace: authorization URLs, status, revocation and bulk clearing.
package auth_tools
