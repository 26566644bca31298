package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/oneplace/workspace-mcp/internal/instrumentation"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/tools/toolstest"
)

func request(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	env := toolstest.New(t, nil)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	}

	result, err := InstrumentedToolHandler("test_tool", env.SC, handler)(context.Background(), request(nil))
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	env := toolstest.New(t, nil)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	}

	_, err := InstrumentedToolHandler("test_tool", env.SC, handler)(context.Background(), request(nil))
	assert.Equal(t, expectedErr, err)
}

func TestInstrumentedToolHandler_AuditLog(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), instrumentation.AuditLoggingConfig{
		Enabled:               true,
		IncludeWorkspaceNames: true,
	})
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"), true)
	require.NoError(t, err)
	env := toolstest.New(t, nil, server.WithAuditLogger(audit), server.WithMetrics(metrics))

	ok := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("done"), nil
	}
	failing := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("boom"), nil
	}

	_, err = InstrumentedToolHandlerWithService("gmail_read_inbox", "gmail", "list", env.SC, ok)(
		context.Background(), request(map[string]any{"workspace": "acme"}))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"tool_executed"`)
	assert.Contains(t, buf.String(), `"tool":"gmail_read_inbox"`)
	assert.Contains(t, buf.String(), "acme")

	buf.Reset()
	result, err := InstrumentedToolHandler("drive_list_files", env.SC, failing)(context.Background(), request(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, buf.String(), `"msg":"tool_failed"`)
	assert.Contains(t, buf.String(), server.DefaultWorkspace)
}
