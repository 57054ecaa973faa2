package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/dispatch"
	"github.com/vmc-cli/vmc/internal/iocontext"
)

func scopedClient(ctx context.Context, e *env) (cloud.ScopedClient, error) {
	client, err := e.Factory.Client(ctx)
	if err != nil {
		return nil, err
	}
	scoped, ok := client.(cloud.ScopedClient)
	if !ok {
		return nil, errScopeUnsupported
	}
	return scoped, nil
}

func newOrgsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orgs",
		Short: "List available organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)
			return e.Shell.Run(ctx, dispatch.LoggedIn, func(ctx context.Context) error {
				client, err := scopedClient(ctx, e)
				if err != nil {
					return err
				}
				orgs, err := client.Organizations(ctx)
				if err != nil {
					return err
				}

				names := make([]string, 0, len(orgs))
				for _, o := range orgs {
					names = append(names, o.Name)
				}
				printNames(ctx, e, names, "No organizations.")
				return nil
			})
		},
	}
}

func newSpacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spaces",
		Short: "List spaces in the current organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)
			return e.Shell.Run(ctx, dispatch.Full, func(ctx context.Context) error {
				client, err := scopedClient(ctx, e)
				if err != nil {
					return err
				}
				spaces, err := client.Spaces(ctx)
				if err != nil {
					return err
				}

				org := client.CurrentOrganization()
				var names []string
				for _, s := range spaces {
					if s.OrganizationID == org.ID {
						names = append(names, s.Name)
					}
				}
				printNames(ctx, e, names, "No spaces.")
				return nil
			})
		},
	}
}

// printNames writes names sorted to stdout, or empty when there are none.
func printNames(ctx context.Context, e *env, names []string, empty string) {
	if len(names) == 0 {
		if !e.Quiet {
			e.UI.Line("%s", empty)
		}
		return
	}
	sort.Strings(names)
	out := iocontext.Stdout(ctx)
	for _, n := range names {
		_, _ = fmt.Fprintln(out, e.UI.C(n, "name"))
	}
}
