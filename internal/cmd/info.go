package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vmc-cli/vmc/internal/dispatch"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Display information on the current target and user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)
			return e.Shell.Run(ctx, dispatch.Target, func(ctx context.Context) error {
				return showInfo(ctx, e)
			})
		},
	}
}

func showInfo(ctx context.Context, e *env) error {
	client, err := e.Factory.Client(ctx)
	if err != nil {
		return err
	}
	info, err := client.Info(ctx)
	if err != nil {
		return err
	}

	if info.Description != "" {
		e.UI.Line("%s", info.Description)
		e.UI.Line("")
	}
	e.UI.Line("target: %s", e.UI.C(client.Target(), "name"))
	e.UI.Line("  version: %s", e.UI.C(info.Version, "number"))
	e.UI.Line("  support: %s", info.Support)

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user != nil {
		name := user.Email
		if name == "" {
			name = user.ID
		}
		e.UI.Line("")
		e.UI.Line("user: %s", e.UI.C(name, "name"))
	}
	return nil
}
