// Package logging provides structured logging helpers for workspace-mcp.
//
// All packages log through log/slog. This package keeps attribute names
// consistent (operation, service, workspace, ...) and makes sure secrets such
// as OAuth access and refresh tokens never reach the log output in clear.
//
// # Usage
//
//	logger := logging.WithService(slog.Default(), "gmail")
//	logger.Info("credentials refreshed",
//	    logging.Workspace(workspaceID),
//	    logging.Status(logging.StatusSuccess))
//
// Tokens must go through SanitizeToken before they are logged:
//
//	logger.Debug("exchanged code", slog.String("access_token", logging.SanitizeToken(tok)))
package logging
