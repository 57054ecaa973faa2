package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmc-cli/vmc/internal/config"
	"github.com/vmc-cli/vmc/internal/crash"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
	"github.com/vmc-cli/vmc/internal/session"
	"github.com/vmc-cli/vmc/internal/target"
)

// App owns CLI wiring and execution configuration.
type App struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Version   string
	Commit    string
	BuildTime string

	// Store overrides the config store found from the environment.
	Store *config.Store
	// Builder overrides the HTTP client constructor.
	Builder session.Builder
	// Prober overrides the https probe used to normalize target URLs.
	Prober target.Prober

	// started is set once a command's hooks run; errors before that are usage errors.
	started bool
}

// NewApp constructs an App with default settings.
func NewApp() *App {
	return &App{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Version:   "dev",
		Commit:    "unknown",
		BuildTime: "unknown",
	}
}

// Execute runs the CLI with the provided args. A panic is turned into an
// error after its crash report is written.
func (a *App) Execute(ctx context.Context, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := &crash.PanicError{Value: r}
			a.reportCrash(crash.New(perr, 0))
			err = perr
		}
	}()

	a.started = false
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !a.started {
			err = clierrors.WrapUserError(err, "invalid usage", "Run 'vmc --help' for usage.")
		}
		a.printCommandError(err)
		return err
	}
	return nil
}

// RootCommand exposes the root Cobra command for embedding/tests.
func (a *App) RootCommand() *cobra.Command {
	return newRootCmd(a)
}

func (a *App) store() (*config.Store, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	store, err := config.Default()
	if err != nil {
		return nil, err
	}
	a.Store = store
	return store, nil
}
