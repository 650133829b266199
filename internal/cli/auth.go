package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/pbicli/internal/auth"
	"github.com/rshade/pbicli/internal/config"
	"github.com/rshade/pbicli/internal/logging"
)

// newAuthCmd creates the auth command group.
func newAuthCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to the Power BI API and manage stored credentials",
	}

	cmd.AddCommand(
		newAuthLoginCmd(state),
		newAuthStatusCmd(state),
		newAuthLogoutCmd(state),
	)

	return cmd
}

const authLoginExample = `  # Reuse the Azure CLI session (az login must have run before)
  pbicli auth login

  # Sign in on a machine without a browser
  pbicli auth login --device-code

  # Sign in to a specific tenant under a named profile
  pbicli auth login --profile work --tenant 72f988bf-86f1-41af-91ab-2d7cd011db47`

type authLoginParams struct {
	token      string
	deviceCode bool
	tenantID   string
	clientID   string
}

// newAuthLoginCmd creates the auth login command.
func newAuthLoginCmd(state *rootState) *cobra.Command {
	var params authLoginParams

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Acquire and store an access token for the active profile",
		Long: `Acquire a Power BI access token and store it under the active profile in
~/.pbicli/credentials.json.

By default the token comes from the local Azure CLI session. Use
--device-code on machines without a browser, or --token to store a
pre-acquired bearer token directly.`,
		Example: authLoginExample,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return classifyExitError(executeAuthLogin(cmd, state, params))
		},
	}

	cmd.Flags().StringVar(&params.token, "token", "",
		"store this bearer token instead of acquiring one")
	cmd.Flags().BoolVar(&params.deviceCode, "device-code", false,
		"sign in with the device code flow instead of the Azure CLI")
	cmd.Flags().StringVar(&params.tenantID, "tenant", "",
		"Azure AD tenant ID to sign in to")
	cmd.Flags().StringVar(&params.clientID, "client-id", "",
		"Azure AD application (client) ID to sign in as")

	return cmd
}

func executeAuthLogin(cmd *cobra.Command, state *rootState, params authLoginParams) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	profileName := state.profileName()
	// An unconfigured profile is fine here: login is how it gets bootstrapped.
	profile, _ := state.cfg.Profile(profileName)

	tenantID := params.tenantID
	if tenantID == "" {
		tenantID = profile.TenantID
	}
	clientID := params.clientID
	if clientID == "" {
		clientID = profile.ClientID
	}

	log.Debug().Ctx(ctx).
		Str("operation", "auth_login").
		Str("profile", profileName).
		Bool("device_code", params.deviceCode).
		Msg("acquiring credential")

	var (
		cred *auth.Credential
		err  error
	)
	switch {
	case params.token != "":
		cred, err = auth.CredentialFromToken(profileName, params.token)
	default:
		method := auth.MethodCLI
		if params.deviceCode {
			method = auth.MethodDeviceCode
		}

		var authenticator *auth.Authenticator
		authenticator, err = auth.NewAuthenticator(method, auth.AuthenticatorOptions{
			Profile:  profileName,
			TenantID: tenantID,
			ClientID: clientID,
			Prompt: func(message string) {
				cmd.Println(message)
			},
		})
		if err != nil {
			return err
		}
		cred, err = authenticator.Acquire(ctx)
	}
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	store, err := state.credentialStore()
	if err != nil {
		return err
	}
	if err := store.Set(cred); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	log.Info().Ctx(ctx).
		Str("profile", profileName).
		Str("identity", cred.Identity).
		Time("expires_at", cred.ExpiresAt).
		Msg("signed in")

	identity := cred.Identity
	if identity == "" {
		identity = profileName
	}
	cmd.Printf("Signed in as %s (profile %s)\n", identity, profileName)
	if !cred.ExpiresAt.IsZero() {
		cmd.Printf("Token expires %s\n", cred.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}

	return nil
}

// authStatus is the JSON shape of auth status output.
type authStatus struct {
	Profile    string    `json:"profile"`
	Identity   string    `json:"identity,omitempty"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Expired    bool      `json:"expired"`
	AcquiredAt time.Time `json:"acquired_at,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

// newAuthStatusCmd creates the auth status command.
func newAuthStatusCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored credential for the active profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return classifyExitError(executeAuthStatus(cmd, state))
		},
	}

	return cmd
}

func executeAuthStatus(cmd *cobra.Command, state *rootState) error {
	format := state.outputFormat()
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	store, err := state.credentialStore()
	if err != nil {
		return err
	}

	profileName := state.profileName()
	cred, ok := store.Get(profileName)
	if !ok {
		return fmt.Errorf("profile %s: %w", profileName, auth.ErrNotLoggedIn)
	}

	status := authStatus{
		Profile:    profileName,
		Identity:   cred.Identity,
		TenantID:   cred.TenantID,
		Expired:    cred.Expired(time.Now()),
		AcquiredAt: cred.AcquiredAt,
		ExpiresAt:  cred.ExpiresAt,
	}

	if format == config.FormatJSON {
		return renderJSON(cmd.OutOrStdout(), status)
	}

	out := cmd.OutOrStdout()
	tw := newTable(out)
	fmt.Fprintf(tw, "Profile:\t%s\n", status.Profile)
	if status.Identity != "" {
		fmt.Fprintf(tw, "Identity:\t%s\n", status.Identity)
	}
	if status.TenantID != "" {
		fmt.Fprintf(tw, "Tenant:\t%s\n", status.TenantID)
	}
	if !status.AcquiredAt.IsZero() {
		fmt.Fprintf(tw, "Acquired:\t%s\n", status.AcquiredAt.Local().Format("2006-01-02 15:04:05"))
	}
	if status.ExpiresAt.IsZero() {
		fmt.Fprintf(tw, "Expires:\tunknown\n")
	} else {
		fmt.Fprintf(tw, "Expires:\t%s\n", status.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing status table: %w", err)
	}

	if status.Expired {
		cmd.PrintErrln("Warning: the stored token is expired, run 'pbicli auth login'")
	}

	return nil
}

// newAuthLogoutCmd creates the auth logout command.
func newAuthLogoutCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential for the active profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeAuthLogout(cmd, state)
		},
	}

	return cmd
}

func executeAuthLogout(cmd *cobra.Command, state *rootState) error {
	store, err := state.credentialStore()
	if err != nil {
		return err
	}

	profileName := state.profileName()
	if _, ok := store.Get(profileName); !ok {
		cmd.Printf("No stored credential for profile %s\n", profileName)
		return nil
	}

	if err := store.Delete(profileName); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return fmt.Errorf("removing credential: %w", err)
	}

	logging.FromContext(cmd.Context()).Info().
		Str("profile", profileName).
		Msg("signed out")

	cmd.Printf("Signed out of profile %s\n", profileName)
	return nil
}
