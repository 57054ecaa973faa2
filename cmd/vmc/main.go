package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vmc-cli/vmc/internal/cmd"
)

// Version information set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	// After the first signal a second one gets the default handler.
	go func() {
		<-ctx.Done()
		cancel()
	}()

	app := cmd.NewApp()
	app.Version = Version
	app.Commit = Commit
	app.BuildTime = BuildTime
	err := app.Execute(ctx, os.Args[1:])
	cancel()

	if err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
