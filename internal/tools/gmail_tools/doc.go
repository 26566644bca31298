// Package gmail_tools provides the Gmail MCP tools: reading the inbox and
// other system labels, searching and sending email.
package gmail_tools
