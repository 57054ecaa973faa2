package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vmc-cli/vmc/internal/auth"
	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/config"
	"github.com/vmc-cli/vmc/internal/dispatch"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
	"github.com/vmc-cli/vmc/internal/iocontext"
	"github.com/vmc-cli/vmc/internal/logging"
	"github.com/vmc-cli/vmc/internal/prompt"
	"github.com/vmc-cli/vmc/internal/session"
	"github.com/vmc-cli/vmc/internal/target"
	"github.com/vmc-cli/vmc/internal/ui"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	force     bool
	quiet     bool
	script    bool
	proxy     string
	trace     bool
	color     string
	debugMode bool
}

func newRootCmd(app *App) *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "vmc",
		Short: "Command-line client for cloud application targets",
		Long: `vmc points at a cloud API target, signs in to it and, on targets that
scope work by organization and space, keeps track of which ones are selected.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Ensure Cobra doesn't emit its own error/usage text; we handle error output centrally.
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			app.started = true

			flags.resolve(cmd.Flags())
			logging.Setup(flags.debugMode, flags.quiet, app.Stderr)

			e, err := buildEnv(app, flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ctx = iocontext.WithStreams(ctx, iocontext.Streams{In: app.Stdin, Out: app.Stdout, Err: app.Stderr})
			ctx = ui.WithUI(ctx, e.UI)
			ctx = withEnv(ctx, e)
			cmd.SetContext(ctx)
			return nil
		},
	}

	rootCmd.Version = app.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("vmc %s (commit: %s, built: %s)\n", app.Version, app.Commit, app.BuildTime))
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return clierrors.WrapUserError(err, "invalid usage", fmt.Sprintf("Run '%s --help' for usage.", c.CommandPath()))
	})

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.force, "force", "f", false, "Skip interaction when possible")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Simplify output format")
	pf.BoolVar(&flags.script, "script", !isTerminal(app.Stdout), "Shortcut for --quiet and --force")
	pf.StringVarP(&flags.proxy, "proxy", "u", "", "Act as another user (admin only)")
	pf.BoolVarP(&flags.trace, "trace", "t", false, "Show API requests and responses")
	pf.StringVar(&flags.color, "color", "auto", "Use colorful output: auto|always|never")
	pf.BoolVar(&flags.debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newTargetCmd())
	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newRegisterCmd())
	rootCmd.AddCommand(newColorsCmd())
	rootCmd.AddCommand(newOrgsCmd())
	rootCmd.AddCommand(newSpacesCmd())

	return rootCmd
}

// resolve applies the implications between flags: --script means --force
// and --quiet unless either was given explicitly, and quiet output is
// uncolored unless --color was given.
func (g *globalFlags) resolve(fs *pflag.FlagSet) {
	if g.script {
		if !fs.Changed("force") {
			g.force = true
		}
		if !fs.Changed("quiet") {
			g.quiet = true
		}
	}
	if g.quiet && !fs.Changed("color") {
		g.color = "never"
	}
}

func buildEnv(app *App, flags globalFlags) (*env, error) {
	store, err := app.store()
	if err != nil {
		return nil, err
	}

	colors, err := store.ReadUserColors()
	if err != nil {
		slog.Warn("ignoring color overrides", "path", store.ColorsFile(), "error", err)
		colors = config.BaseColors()
	}

	var builder session.Builder = cloud.Connector{Options: cloud.Options{TraceOutput: app.Stderr}}
	if app.Builder != nil {
		builder = app.Builder
	}
	factory := session.NewFactory(store, builder)
	factory.Proxy = flags.proxy
	factory.Trace = flags.trace

	out := ui.New(app.Stdout, ui.Options{
		Mode:    parseColorMode(flags.color),
		Colors:  colors,
		Quiet:   flags.quiet,
		Spinner: !flags.quiet && isTerminal(app.Stdout),
	})
	terminal := prompt.New(app.Stdin, app.Stdout)

	flow := &auth.Flow{
		Store:    store,
		Clients:  factory,
		Prompter: terminal,
		Chooser:  terminal,
		Progress: out,
		Force:    flags.force,
	}

	prober := app.Prober
	if prober == nil {
		prober = target.DialProber{}
	}

	return &env{
		Store:   store,
		Factory: factory,
		Auth:    flow,
		Shell: &dispatch.Shell{
			Store:   store,
			Clients: factory,
			Auth:    flow,
			Force:   flags.force,
			Notice:  out,
		},
		Terminal: terminal,
		UI:       out,
		Prober:   prober,
		Colors:   colors,
		Force:    flags.force,
		Quiet:    flags.quiet,
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func parseColorMode(value string) ui.ColorMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "always":
		return ui.ColorAlways
	case "never":
		return ui.ColorNever
	default:
		return ui.ColorAuto
	}
}
