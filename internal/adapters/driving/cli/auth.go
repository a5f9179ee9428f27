package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage cached app-registered sign-ins",
	Long: `Sign in with an OAuth application registered on the portal and manage
the cached tokens.

Ambient mode needs no sign-in: it reads ARCGIS_TOKEN, or ARCGIS_USERNAME and
ARCGIS_PASSWORD, from the environment or the desktop environment's .env file.

Examples:
  # Sign in through the browser and cache the tokens
  layerpull auth login --portal https://gis.example.org/portal --client-id abcDEF123

  # Show cached sign-ins
  layerpull auth status

  # Forget a cached sign-in
  layerpull auth logout --portal https://gis.example.org/portal --client-id abcDEF123`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through the browser and cache the tokens",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove cached tokens for a portal and client ID",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List cached sign-ins",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

// Flags shared by auth login and logout.
var (
	authPortal   string
	authClientID string
)

func init() {
	for _, c := range []*cobra.Command{authLoginCmd, authLogoutCmd} {
		c.Flags().StringVar(&authPortal, "portal", "", "portal URL (default from config)")
		c.Flags().StringVar(&authClientID, "client-id", "", "OAuth application client ID (default from config)")
	}

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// authTarget resolves the portal and client ID from flags, then config.
func authTarget(cmd *cobra.Command) (portal, clientID string) {
	cfg := currentConfig()
	portal, clientID = cfg.PortalURL, cfg.ClientID
	if cmd.Flags().Changed("portal") {
		portal = authPortal
	}
	if cmd.Flags().Changed("client-id") {
		clientID = authClientID
	}
	return portal, clientID
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if credentialsManager == nil {
		return errors.New("credentials service not configured")
	}

	portal, clientID := authTarget(cmd)
	cfg := currentConfig()
	profile := cfg.Profile()
	profile.PortalURL = portal
	profile.ClientID = clientID
	profile.CredentialMode = domain.CredentialModeAppRegistered

	creds, err := credentialsManager.Login(cmd.Context(), profile)
	if err != nil {
		return err
	}

	cmd.Printf("Signed in to %s as %s\n", creds.PortalURL, creds.Username)
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	if credentialsManager == nil {
		return errors.New("credentials service not configured")
	}

	portal, clientID := authTarget(cmd)
	if err := credentialsManager.Logout(cmd.Context(), portal, clientID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no cached sign-in for %s (client %s)", domain.ErrInvalidInput, portal, clientID)
		}
		return err
	}

	cmd.Printf("Signed out of %s (client %s)\n", portal, clientID)
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if credentialsManager == nil {
		return errors.New("credentials service not configured")
	}

	list, err := credentialsManager.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		cmd.Println("No cached sign-ins.")
		cmd.Println("\nSign in with: layerpull auth login --portal <url> --client-id <id>")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PORTAL\tCLIENT ID\tUSER\tTOKEN")
	for i := range list {
		c := &list[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.PortalURL, c.ClientID, c.Username, tokenState(c))
	}
	return w.Flush()
}

// tokenState describes whether the cached access token is usable.
func tokenState(c *domain.Credentials) string {
	switch {
	case c.OAuth == nil || !c.IsAuthenticated():
		return "signed out"
	case c.NeedsRefresh():
		return "expired, refreshable"
	case c.OAuth.Expiry.IsZero():
		return "valid"
	default:
		return "expires " + humanize.Time(c.OAuth.Expiry)
	}
}
