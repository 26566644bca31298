// Package common provides shared utilities for MCP tool implementations:
// argument parsing, workspace resolution, the "no credentials" error result
// and the instrumentation wrapper every tool handler goes through.
package common
