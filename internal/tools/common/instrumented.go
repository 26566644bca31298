package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/oneplace/workspace-mcp/internal/instrumentation"
	"github.com/oneplace/workspace-mcp/internal/logging"
	"github.com/oneplace/workspace-mcp/internal/server"
)

var errToolResult = errors.New("tool returned an error result")

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return InstrumentedToolHandlerWithService(toolName, "", "", sc, handler)
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// records the Google service and operation in the audit log. API call metrics
// are recorded by the service clients themselves.
func InstrumentedToolHandlerWithService(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	handler mcpserver.ToolHandlerFunc,
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workspace := WorkspaceFromArgs(request.GetArguments())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithWorkspace(workspace).
			WithSpanContext(ctx)
		if serviceName != "" {
			invocation.WithService(serviceName, operation)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		success := err == nil && (result == nil || !result.IsError)
		invocation.Complete(success, err)
		switch {
		case success:
			instrumentation.SetSpanSuccess(span)
		case err != nil:
			instrumentation.SetSpanError(span, err)
		default:
			instrumentation.SetSpanError(span, errToolResult)
		}

		sc.Metrics().RecordToolInvocationWithWorkspace(ctx, toolName, invocation.Status(), workspace, duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)
		if err != nil {
			sc.Logger().Error("tool handler failed", logging.Tool(toolName), logging.Err(err))
		}
		return result, err
	}
}
