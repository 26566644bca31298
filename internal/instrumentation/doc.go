// Package instrumentation provides OpenTelemetry metrics, tracing and the
// tool audit log for workspace-mcp.
//
// # Metrics
//
// Credential metrics:
//   - credential_operations_total: manager operations by service, operation and status
//   - credential_refresh_total: refresh attempts by service and result
//   - credential_invalidations_total: stored credentials discarded, by service and reason
//   - oauth_exchange_total: authorization code exchanges by service and result
//
// Google API metrics:
//   - google_api_operations_total
//   - google_api_operation_duration_seconds
//
// HTTP and MCP tool metrics:
//   - http_requests_total, http_request_duration_seconds
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//
// Metrics are exported through Prometheus by default (see PrometheusHandler),
// or OTLP/stdout when configured.
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>), Google API calls
// (google.<service>.<operation>) and credential manager calls
// (credentials.<operation>).
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: workspace-mcp)
//   - METRICS_DETAILED_LABELS (default: false)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_WORKSPACE_NAMES
package instrumentation
