package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oneplace/workspace-mcp/internal/config"
	"github.com/oneplace/workspace-mcp/internal/store"
)

// rootCmd represents the base command for the workspace-mcp application
var rootCmd = &cobra.Command{
	Use:   "workspace-mcp",
	Short: "Per-workspace Google credentials and Gmail, Drive and Docs tools over MCP",
	Long: `workspace-mcp stores OAuth2 credentials for Gmail, Google Drive and Google
Docs per workspace, refreshes them on demand and exposes the services to AI
assistants as MCP tools.

It can run as:
  - An MCP server over stdio (default)
  - An MCP server over streamable HTTP, together with the OAuth callback and
    credential management API`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "workspace-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCredentialsCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// addDatabaseFlags registers the flags shared by commands that only need
// the database.
func addDatabaseFlags(flags *pflag.FlagSet) {
	flags.String("database-url", config.DefaultDatabaseURL, "PostgreSQL connection URL. Can also use DATABASE_URL env var.")
}

// loadConfig reads .env, the environment and flags.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	config.LoadDotEnv()
	return config.Load(flags)
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return store.Open(ctx, cfg.Database.URL, store.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}
