package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vmc-cli/vmc/internal/auth"
	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/dispatch"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
	"github.com/vmc-cli/vmc/internal/iocontext"
	"github.com/vmc-cli/vmc/internal/orgspace"
	"github.com/vmc-cli/vmc/internal/target"
)

var errScopeUnsupported = clierrors.NewUserError(
	"organizations and spaces are not available on this target",
	"Only v2 targets scope work by organization and space.",
)

// scopeFlags are the --org and --space flags shared by target and login.
type scopeFlags struct {
	org   string
	space string
}

func (s *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.org, "org", "o", "", "Organization")
	cmd.Flags().StringVarP(&s.space, "space", "s", "", "Space")
}

func (s *scopeFlags) request(cmd *cobra.Command) orgspace.Request {
	return orgspace.Request{
		Org:            s.org,
		OrgRequested:   cmd.Flags().Changed("org"),
		Space:          s.space,
		SpaceRequested: cmd.Flags().Changed("space"),
	}
}

func newTargetCmd() *cobra.Command {
	var scope scopeFlags

	cmd := &cobra.Command{
		Use:   "target [url]",
		Short: "Set or display the target cloud, organization, and space",
		Long: `Without arguments, show the current target and, on v2 targets, the
selected organization and space.

With a URL, point vmc at a new target. A URL without a scheme gets https when
the host answers on port 443 and http otherwise.`,
		Example: `  vmc target api.example.com
  vmc target --org acme --space dev`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)
			req := scope.request(cmd)

			if len(args) == 0 && !req.OrgRequested && !req.SpaceRequested {
				return showTarget(ctx, e)
			}

			if len(args) == 1 {
				if err := setTarget(ctx, e, args[0]); err != nil {
					return err
				}
				if e.Force && !req.OrgRequested && !req.SpaceRequested {
					return nil
				}
			}

			return e.Shell.Run(ctx, dispatch.Target, func(ctx context.Context) error {
				return selectScope(ctx, e, req)
			})
		},
	}
	scope.register(cmd)
	return cmd
}

func setTarget(ctx context.Context, e *env, raw string) error {
	url := target.Normalize(ctx, raw, e.Prober)
	msg := "Setting target to " + e.UI.C(target.Display(url), "name")
	err := e.UI.Step(ctx, msg, func() error {
		return e.Store.WriteTarget(url)
	})
	if err != nil {
		return err
	}
	e.Factory.Invalidate()
	return nil
}

// selectScope settles the organization and space on the current target,
// logging in first when there is no token.
func selectScope(ctx context.Context, e *env, req orgspace.Request) error {
	current, err := e.Store.ReadTarget()
	if err != nil {
		return err
	}
	client, err := e.Factory.Unscoped(ctx, current)
	if err != nil {
		return err
	}

	scoped, ok := client.(cloud.ScopedClient)
	if !ok {
		if req.OrgRequested || req.SpaceRequested {
			return errScopeUnsupported
		}
		return showTarget(ctx, e)
	}

	if !client.LoggedIn() {
		if e.Force {
			return clierrors.ErrNotLoggedIn
		}
		if _, err := e.Auth.Login(ctx, auth.Input{Scope: req}); err != nil {
			return err
		}
		return showTarget(ctx, e)
	}

	rec, err := e.Store.Record(current)
	if err != nil {
		return err
	}
	resolver := orgspace.Resolver{Client: scoped, Chooser: e.Terminal, Force: e.Force}
	if err := resolver.Select(ctx, req, &rec); err != nil {
		return err
	}
	if err := e.Store.SaveRecord(current, rec); err != nil {
		return err
	}
	e.Factory.Invalidate()
	return showTarget(ctx, e)
}

// showTarget prints the current target and, when both are resolved, its
// organization and space. Quiet output is the bare URL.
func showTarget(ctx context.Context, e *env) error {
	current, err := e.Store.ReadTarget()
	if err != nil {
		return err
	}
	if current == "" {
		return clierrors.ErrNoTarget
	}

	if e.Quiet {
		e.UI.Line("%s", current)
		return nil
	}
	e.UI.Line("Target: %s", e.UI.C(current, "name"))

	client, err := e.Factory.Client(ctx)
	if err != nil {
		slog.Debug("cannot show organization and space", "target", current, "error", err)
		return nil
	}
	if scoped, ok := client.(cloud.ScopedClient); ok {
		org, space := scoped.CurrentOrganization(), scoped.CurrentSpace()
		if org != nil && space != nil {
			e.UI.Line("Organization: %s", e.UI.C(org.Name, "name"))
			e.UI.Line("Space: %s", e.UI.C(space.Name, "name"))
		}
	}
	return nil
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List known targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e := envFromContext(ctx)
			sessions, err := e.Store.ReadSessionStore()
			if err != nil {
				return err
			}
			out := iocontext.Stdout(ctx)
			for _, t := range sessions.Targets() {
				_, _ = fmt.Fprintln(out, e.UI.C(t, "name"))
			}
			return nil
		},
	}
}
