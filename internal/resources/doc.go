// Package resources provides read-only MCP resources scoped to a workspace.
// Resources are addressed as workspace://{workspace}/<path>, so a client can
// inspect a workspace's credential state without calling a tool.
package resources
