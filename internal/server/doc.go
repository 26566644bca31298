// Package server holds what the MCP tools and the HTTP API share at run
// time, and the HTTP surface itself.
//
// ServerContext resolves workspaces by name, hands out the per-service
// credential managers and builds Gmail, Drive and Docs clients for a
// validated token.
//
// The chi router built by NewAPIRouter serves the OAuth flow (initiate,
// callback, status, revoke), workspace bootstrap and health endpoints.
// MetricsServer exposes Prometheus metrics on a separate listener.
package server
