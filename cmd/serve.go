package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/oneplace/workspace-mcp/internal/config"
	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/instrumentation"
	"github.com/oneplace/workspace-mcp/internal/logging"
	"github.com/oneplace/workspace-mcp/internal/resources"
	"github.com/oneplace/workspace-mcp/internal/server"
	"github.com/oneplace/workspace-mcp/internal/store"
	"github.com/oneplace/workspace-mcp/internal/tools/auth_tools"
	"github.com/oneplace/workspace-mcp/internal/tools/docs_tools"
	"github.com/oneplace/workspace-mcp/internal/tools/drive_tools"
	"github.com/oneplace/workspace-mcp/internal/tools/gmail_tools"
)

const (
	mcpEndpoint       = "/mcp"
	readHeaderTimeout = 10 * time.Second
	metricsShutdown   = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	var disableStreaming bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server.

Supports two transport types:
  - stdio: Standard input/output (default)
  - streamable-http: MCP over HTTP at /mcp, served together with the OAuth
    callback, workspace and credential API and the health endpoints

Google OAuth clients are read from GOOGLE_<SERVICE>_CLIENT_ID and
GOOGLE_<SERVICE>_CLIENT_SECRET, falling back to GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET. Credentials are stored per workspace in PostgreSQL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, disableStreaming)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "HTTP listen host (streamable-http only). Can also use HOST env var.")
	flags.Int("port", 8000, "HTTP listen port (streamable-http only). Can also use PORT env var.")
	flags.String("transport", config.TransportStdio, "Transport type: stdio or streamable-http. Can also use TRANSPORT env var.")
	addDatabaseFlags(flags)
	flags.Bool("auto-migrate", false, "Apply database migrations on startup. Can also use AUTO_MIGRATE env var.")
	flags.Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	flags.String("metrics-addr", config.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	flags.String("log-format", "text", "Log format: text or json. Can also use LOG_FORMAT env var.")
	flags.Bool("debug", false, "Enable debug logging. Can also use DEBUG env var.")
	flags.BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, disableStreaming bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stdout carries the stdio transport; logs always go to stderr.
	logger := logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdown)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, st.DB()); err != nil {
			return err
		}
	}

	registry, err := credentials.NewRegistry(st, credentials.RegistryConfig{
		RedirectURL: cfg.OAuth.RedirectURL,
		HTTPClient:  google.NewHTTPClient(cfg.OAuth.HTTPTimeout),
	},
		credentials.WithLogger(logger),
		credentials.WithMetrics(provider.Metrics()),
	)
	if err != nil {
		return fmt.Errorf("google oauth is not configured: %w", err)
	}

	sc, err := server.NewServerContext(ctx, st, registry,
		server.WithLogger(logger),
		server.WithMetrics(provider.Metrics()),
		server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := sc.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if cfg.Metrics.Enabled {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			Enabled:                 cfg.Metrics.Enabled,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			logger.Warn("metrics server disabled", logging.Err(err))
		} else {
			go func() {
				if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", logging.Err(err))
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdown)
				defer cancel()
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					logger.Warn("metrics server shutdown failed", logging.Err(err))
				}
			}()
		}
	}

	mcpSrv := newMCPServer(sc)

	switch cfg.Server.Transport {
	case config.TransportStdio:
		return runStdioServer(ctx, mcpSrv)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(ctx, cfg, sc, mcpSrv, disableStreaming)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", cfg.Server.Transport, config.TransportStdio, config.TransportStreamableHTTP)
	}
}

// newMCPServer creates the MCP server with every tool and resource.
func newMCPServer(sc *server.ServerContext) *mcpserver.MCPServer {
	mcpSrv := mcpserver.NewMCPServer("workspace-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	auth_tools.Register(mcpSrv, sc)
	gmail_tools.Register(mcpSrv, sc)
	drive_tools.Register(mcpSrv, sc)
	docs_tools.Register(mcpSrv, sc)
	resources.Register(mcpSrv, sc)

	return mcpSrv
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

func runStreamableHTTPServer(ctx context.Context, cfg *config.Config, sc *server.ServerContext, mcpSrv *mcpserver.MCPServer, disableStreaming bool) error {
	logger := sc.Logger()
	health := server.NewHealthChecker(sc)

	router := server.NewAPIRouter(sc, health, server.APIConfig{
		SuccessRedirect: cfg.OAuth.SuccessRedirect,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Version:         version,
	})
	router.Handle(mcpEndpoint, mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(mcpEndpoint),
		mcpserver.WithDisableStreaming(disableStreaming),
	))

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		logger.Info("starting HTTP server",
			"addr", httpServer.Addr,
			"mcp_endpoint", mcpEndpoint,
			"transport", cfg.Server.Transport)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, stopping HTTP server")
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	return nil
}
