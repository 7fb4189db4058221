package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radiusfinancial/radius-api/cmd/radius-admin/ui"
	"github.com/radiusfinancial/radius-api/internal/app"
	"github.com/radiusfinancial/radius-api/internal/auth"
	"github.com/radiusfinancial/radius-api/internal/config"
	"github.com/radiusfinancial/radius-api/internal/database"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "radius-admin",
		Short:         "Operator tasks for the accounts service",
		Long:          "Manage accounts and the database of the accounts service. Reads the same environment as the API server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	createSuperuserCmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create a superuser account",
		Long:  "Create a superuser. Missing values are asked for interactively; pass --email and --password for scripting.",
		Args:  cobra.NoArgs,
		RunE:  runCreateSuperuser,
	}
	createSuperuserCmd.Flags().String("email", "", "Email address")
	createSuperuserCmd.Flags().String("password", "", "Password")
	createSuperuserCmd.Flags().String("first-name", "", "First name")
	createSuperuserCmd.Flags().String("last-name", "", "Last name")
	createSuperuserCmd.Flags().Bool("validated", false, "Mark the email as validated instead of sending the validation email")

	validateCmd := &cobra.Command{
		Use:   "validate <email>",
		Short: "Mark an account's email as validated without sending an email",
		Args:  cobra.ExactArgs(1),
		RunE:  withService(runValidate),
	}

	resendCmd := &cobra.Command{
		Use:   "resend-validation <email>",
		Short: "Send a fresh validation email",
		Args:  cobra.ExactArgs(1),
		RunE:  withService(runResendValidation),
	}

	impersonateCmd := &cobra.Command{
		Use:   "impersonate <email>",
		Short: "Print an access token for an account",
		Args:  cobra.ExactArgs(1),
		RunE:  withService(runImpersonate),
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup-tokens",
		Short: "Delete expired refresh tokens",
		Args:  cobra.NoArgs,
		RunE:  withService(runCleanupTokens),
	}

	rootCmd.AddCommand(migrateCmd, createSuperuserCmd, validateCmd, resendCmd, impersonateCmd, cleanupCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// commandFunc is a subcommand that needs the wired application.
type commandFunc func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error

func withService(fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, cmd, args)
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLogger(false)
	return app.New(ctx, cfg, logger)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db.DB); err != nil {
		return err
	}

	ui.PrintSuccess("Migrations applied.")
	return nil
}

func runCreateSuperuser(cmd *cobra.Command, args []string) error {
	in := ui.SuperuserInput{}
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")
	in.FirstName, _ = cmd.Flags().GetString("first-name")
	in.LastName, _ = cmd.Flags().GetString("last-name")
	in.Validated, _ = cmd.Flags().GetBool("validated")

	input := &in
	if !in.Complete() {
		var err error
		input, err = ui.RunSuperuserForm(in)
		if err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}
	if err := input.Validate(); err != nil {
		return err
	}

	return withService(func(ctx context.Context, a *app.App, _ *cobra.Command, _ []string) error {
		u, err := a.Auth.CreateAccount(ctx, user.Registration{
			Email:     input.Email,
			Password:  input.Password,
			FirstName: input.FirstName,
			LastName:  input.LastName,
		}, auth.AccountOptions{Superuser: true, Validated: input.Validated})
		if u == nil {
			return err
		}
		if err != nil {
			ui.PrintError("account created but the validation email failed: " + err.Error())
		}

		ui.PrintUser("Superuser created", u.ID, u.Email, u.IsSuperuser, u.IsValidated())
		return nil
	})(cmd, args)
}

func runValidate(ctx context.Context, a *app.App, _ *cobra.Command, args []string) error {
	u, err := a.Auth.MarkValidated(ctx, args[0])
	if err != nil {
		return err
	}
	ui.PrintUser("Account validated", u.ID, u.Email, u.IsSuperuser, u.IsValidated())
	return nil
}

func runResendValidation(ctx context.Context, a *app.App, _ *cobra.Command, args []string) error {
	u, err := a.Users.GetByEmail(ctx, args[0])
	if err != nil {
		return err
	}
	if u.IsValidated() {
		return errors.New(u.Email + " is already validated")
	}
	if err := a.Auth.IssueValidationToken(ctx, u); err != nil {
		return err
	}
	ui.PrintSuccess("Validation email sent to " + u.Email + ".")
	return nil
}

func runImpersonate(ctx context.Context, a *app.App, _ *cobra.Command, args []string) error {
	u, err := a.Users.GetByEmail(ctx, args[0])
	if err != nil {
		return err
	}
	tokens, err := a.Auth.TokensFor(ctx, u)
	if err != nil {
		return err
	}
	a.Logger.Warn("impersonation token issued from radius-admin", "user_id", u.ID)
	ui.PrintToken(u.Email, tokens.AccessToken)
	return nil
}

func runCleanupTokens(ctx context.Context, a *app.App, _ *cobra.Command, _ []string) error {
	if err := a.RefreshTokens.CleanupExpiredTokens(ctx); err != nil {
		return err
	}
	ui.PrintSuccess("Expired refresh tokens removed.")
	return nil
}
