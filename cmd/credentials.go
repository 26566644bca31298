package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/oneplace/workspace-mcp/internal/credentials"
	"github.com/oneplace/workspace-mcp/internal/google"
	"github.com/oneplace/workspace-mcp/internal/store"
)

// credentialStore is the part of *store.Store the credentials command uses.
type credentialStore interface {
	ListWorkspaces(ctx context.Context) ([]store.Workspace, error)
	GetWorkspaceByID(ctx context.Context, id string) (*store.Workspace, error)
	GetWorkspaceByName(ctx context.Context, name string) (*store.Workspace, error)
	ListLinks(ctx context.Context, workspaceID string) ([]store.Link, error)
	DeleteLinksByIntegrationPrefix(ctx context.Context, workspaceID, prefix string) (int64, error)
	DeleteAllLinksByIntegrationPrefix(ctx context.Context, prefix string) (int64, error)
}

var _ credentialStore = (*store.Store)(nil)

func newCredentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Inspect or clear stored Google credentials",
	}
	addDatabaseFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the Google credentials of every workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return listCredentials(ctx, st, cmd.OutOrStdout(), time.Now())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <workspace>",
		Short: "Delete the Google credentials of one workspace",
		Long: `Delete every Google credential of the workspace, given by name or by ID.
Tokens are not revoked with Google.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return clearCredentials(ctx, st, cmd.OutOrStdout(), args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-all",
		Short: "Delete the Google credentials of every workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.Store) error {
				return clearAllCredentials(ctx, st, cmd.OutOrStdout())
			})
		},
	})

	return cmd
}

func listCredentials(ctx context.Context, st credentialStore, w io.Writer, now time.Time) error {
	workspaces, err := st.ListWorkspaces(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKSPACE\tSERVICE\tEXPIRY\tREFRESH TOKEN\tCREATED")
	rows := 0
	for _, ws := range workspaces {
		links, err := st.ListLinks(ctx, ws.ID)
		if err != nil {
			return err
		}
		for _, l := range links {
			service, ok := strings.CutPrefix(l.IntegrationName, google.IntegrationPrefix)
			if !ok {
				continue
			}
			expiry, refresh := "invalid", "-"
			if creds, err := credentials.ParseCredentials(l.AuthDetails); err == nil {
				expiry = describeExpiry(creds, now)
				refresh = yesNo(creds.RefreshToken != "")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ws.Name, service, expiry, refresh, l.CreatedDate.UTC().Format(time.RFC3339))
			rows++
		}
	}
	if rows == 0 {
		_, err := fmt.Fprintln(w, "No Google credentials stored.")
		return err
	}
	return tw.Flush()
}

func describeExpiry(c *credentials.Credentials, now time.Time) string {
	switch {
	case c.Expiry.IsZero():
		return "never"
	case c.Expired(now):
		return "expired"
	default:
		return c.Expiry.UTC().Format(time.RFC3339)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// clearCredentials deletes the Google credentials of the workspace named by
// ref, which is a workspace ID when it parses as a UUID and a name otherwise.
func clearCredentials(ctx context.Context, st credentialStore, w io.Writer, ref string) error {
	var (
		ws  *store.Workspace
		err error
	)
	if _, perr := uuid.Parse(ref); perr == nil {
		ws, err = st.GetWorkspaceByID(ctx, ref)
	} else {
		ws, err = st.GetWorkspaceByName(ctx, ref)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("workspace %q not found", ref)
	}
	if err != nil {
		return err
	}

	n, err := st.DeleteLinksByIntegrationPrefix(ctx, ws.ID, google.IntegrationPrefix)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Cleared %d Google credential(s) for workspace %s\n", n, ws.Name)
	return err
}

func clearAllCredentials(ctx context.Context, st credentialStore, w io.Writer) error {
	n, err := st.DeleteAllLinksByIntegrationPrefix(ctx, google.IntegrationPrefix)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Cleared %d Google credential(s) across all workspaces\n", n)
	return err
}
