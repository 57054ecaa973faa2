package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/dispatch"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
)

var errPasswordMismatch = clierrors.NewUserError("Passwords do not match.", "")

type registerOptions struct {
	password string
	verify   string
	login    bool
}

func newRegisterCmd() *cobra.Command {
	var opts registerOptions

	cmd := &cobra.Command{
		Use:    "register [email]",
		Short:  "Create a user and log in",
		Hidden: true,
		Args:   cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)
			var email string
			if len(args) == 1 {
				email = args[0]
			}
			return e.Shell.Run(ctx, dispatch.Target, func(ctx context.Context) error {
				return register(ctx, e, email, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.password, "password", "", "Password")
	cmd.Flags().StringVar(&opts.verify, "verify", "", "Repeat password")
	cmd.Flags().BoolVar(&opts.login, "login", true, "Automatically log in")
	return cmd
}

func register(ctx context.Context, e *env, email string, opts registerOptions) error {
	if !e.Quiet {
		if err := showTarget(ctx, e); err != nil {
			return err
		}
		e.UI.Line("")
	}

	var err error
	if email == "" {
		if e.Force {
			return clierrors.NewUserError("missing email", "Pass the email as an argument.")
		}
		if email, err = e.Terminal.Ask(ctx, "Email"); err != nil {
			return err
		}
	}

	password := opts.password
	if password == "" {
		if e.Force {
			return clierrors.NewUserError("missing password", "Pass --password.")
		}
		if password, err = e.Terminal.AskSecret(ctx, "Password"); err != nil {
			return err
		}
	}

	verify := opts.verify
	if verify == "" && !e.Force {
		if verify, err = e.Terminal.AskSecret(ctx, "Confirm Password"); err != nil {
			return err
		}
	}
	if !e.Force && password != verify {
		return errPasswordMismatch
	}

	current, err := e.Store.ReadTarget()
	if err != nil {
		return err
	}
	client, err := e.Factory.Unscoped(ctx, current)
	if err != nil {
		return err
	}

	err = e.UI.Step(ctx, "Creating user", func() error {
		return client.Register(ctx, email, password)
	})
	if errors.Is(err, cloud.ErrUnsupported) {
		return clierrors.NewUserError("Not implemented for v2.", "")
	}
	if err != nil || !opts.login {
		return err
	}

	var token string
	err = e.UI.Step(ctx, "Logging in", func() error {
		var loginErr error
		token, loginErr = client.Login(ctx, cloud.Credentials{
			cloud.IdentityField: email,
			"password":          password,
		})
		return loginErr
	})
	if err != nil {
		return err
	}

	rec, err := e.Store.Record(current)
	if err != nil {
		return err
	}
	rec.Token = token
	rec.ProtocolVersion = int(client.Version())
	if err := e.Store.SaveRecord(current, rec); err != nil {
		return err
	}
	e.Factory.Invalidate()
	return nil
}
