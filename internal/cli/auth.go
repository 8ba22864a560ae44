package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/auth"
	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/profile"
	"github.com/prepmate/interview-client/internal/store"
)

var errMissingFields = errors.New("Please fill in all fields")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	Long: `Log in with email and password. The token is stored locally and sent
with every protected request until logout or until the backend rejects it.

Examples:
  prepmate login --email ada@example.com
  prepmate login --email ada@example.com --password secret`,
	Args: cobra.NoArgs,
	RunE: withApp(runLogin),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  withApp(runRegister),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogout),
}

// Flags
var (
	authEmail     string
	authPassword  string
	authFirstName string
	authLastName  string
)

func init() {
	loginCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")

	registerCmd.Flags().StringVar(&authFirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&authLastName, "last-name", "", "Last name")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
}

func runLogin(cmd *cobra.Command, args []string, app *AppContext) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	password, err := promptIfEmpty(cmd, authPassword, "Password: ")
	if err != nil {
		return err
	}
	email := strings.TrimSpace(authEmail)
	if email == "" || password == "" {
		return errMissingFields
	}

	resp, err := app.Backend.Login(ctx, backend.LoginRequest{Email: email, Password: password})
	if err != nil {
		app.Logger.Warn().Err(err).Msg("Login failed")
		return errors.New(backend.UserMessage(err, "Login failed"))
	}

	if err := app.Store.Credentials().Set(auth.Credentials{Token: resp.Token, User: resp.User}); err != nil {
		return err
	}
	seedProfile(cmd, app, resp.User)

	fmt.Fprintln(out, "Login successful!")
	if name := resp.User.DisplayName(); name != "" {
		fmt.Fprintf(out, "Welcome back, %s.\n", name)
	}
	return nil
}

// seedProfile creates the profile from the user record on first login
func seedProfile(cmd *cobra.Command, app *AppContext, user *auth.UserInfo) {
	if user == nil {
		return
	}
	ctx := commandContext(cmd)
	if _, err := app.Store.GetProfile(ctx); !errors.Is(err, store.ErrNotFound) {
		return
	}
	if err := app.Store.SaveProfile(ctx, profile.FromUser(user)); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to seed profile")
	}
}

func runRegister(cmd *cobra.Command, args []string, app *AppContext) error {
	password, err := promptIfEmpty(cmd, authPassword, "Password: ")
	if err != nil {
		return err
	}

	req := backend.RegisterRequest{
		FirstName: strings.TrimSpace(authFirstName),
		LastName:  strings.TrimSpace(authLastName),
		Email:     strings.TrimSpace(authEmail),
		Password:  password,
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return errMissingFields
	}

	if err := app.Backend.Register(commandContext(cmd), req); err != nil {
		app.Logger.Warn().Err(err).Msg("Registration failed")
		return errors.New(backend.UserMessage(err, "Registration failed"))
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Registered successfully! Please login to continue.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string, app *AppContext) error {
	if err := app.Store.Credentials().Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}
