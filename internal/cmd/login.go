package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vmc-cli/vmc/internal/auth"
	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/dispatch"
)

func newLoginCmd() *cobra.Command {
	var (
		password string
		scope    scopeFlags
	)

	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Authenticate with the target",
		Long: `Sign in to the current target and store the token.

The target decides which fields it needs. Anything not given on the command
line is prompted for; with --force a missing field is an error instead. On v2
targets the organization and space are selected afterwards.`,
		Example: `  vmc login me@example.com
  vmc login me@example.com --password secret --org acme --space dev`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)

			creds := cloud.Credentials{}
			if len(args) == 1 {
				creds[cloud.IdentityField] = args[0]
			}
			if password != "" {
				creds["password"] = password
			}
			in := auth.Input{Credentials: creds, Scope: scope.request(cmd)}

			return e.Shell.Run(ctx, dispatch.Target, func(ctx context.Context) error {
				if !e.Quiet {
					if err := showTarget(ctx, e); err != nil {
						return err
					}
					e.UI.Line("")
				}
				_, err := e.Auth.Login(ctx, in)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password")
	scope.register(cmd)
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out from the target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)
			return e.Shell.Run(ctx, dispatch.Target, func(ctx context.Context) error {
				current, err := e.Store.ReadTarget()
				if err != nil {
					return err
				}
				err = e.UI.Step(ctx, "Logging out", func() error {
					return e.Store.RemoveRecord(current)
				})
				e.Factory.Invalidate()
				return err
			})
		},
	}
}
