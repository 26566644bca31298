// Package toolstest wires a ServerContext against in-memory storage, a
// scripted OAuth provider and an httptest Google API for tool tests.
package toolstest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/credentials/credentialstest"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/store/storetest"
)

// Env is a ServerContext with its fakes.
type Env struct {
	SC       *server.ServerContext
	Store    *storetest.Memory
	Provider *credentialstest.Provider
}

// New builds an Env. Google API calls go to api when it is non-nil.
func New(t *testing.T, api http.Handler, opts ...server.Option) *Env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := storetest.New()
	provider := &credentialstest.Provider{}
	registry := credentialstest.NewRegistry(mem, provider, credentials.WithLogger(logger))

	all := []server.Option{server.WithLogger(logger)}
	if api != nil {
		srv := httptest.NewServer(api)
		t.Cleanup(srv.Close)
		all = append(all, server.WithAPIOptions(option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client())))
	}
	all = append(all, opts...)

	sc, err := server.NewServerContext(context.Background(), mem, registry, all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return &Env{SC: sc, Store: mem, Provider: provider}
}

// Authorize stores credentials for svc in the named workspace.
func (e *Env) Authorize(t *testing.T, workspace string, svc google.Service) {
	t.Helper()
	ctx := context.Background()
	ws, err := e.SC.ResolveWorkspace(ctx, workspace)
	require.NoError(t, err)
	m, err := e.SC.Manager(svc)
	require.NoError(t, err)
	_, err = m.ExchangeCodeForTokens(ctx, "code-"+ws.Name, ws.ID)
	require.NoError(t, err)
}

// Call invokes the handler of the named tool.
func Call(t *testing.T, tools []mcpserver.ServerTool, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	for _, tool := range tools {
		if tool.Tool.Name != name {
			continue
		}
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args
		result, err := tool.Handler(context.Background(), req)
		require.NoError(t, err)
		require.NotNil(t, result)
		return result
	}
	t.Fatalf("tool %q is not registered", name)
	return nil
}

// Names returns the tool names in registration order.
func Names(tools []mcpserver.ServerTool) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Tool.Name)
	}
	return names
}

// Text joins the text content of a result.
func Text(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// JSON writes body as a JSON response.
func JSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}
