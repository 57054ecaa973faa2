package cmd

import (
	"context"

	"github.com/vmc-cli/vmc/internal/auth"
	"github.com/vmc-cli/vmc/internal/config"
	"github.com/vmc-cli/vmc/internal/dispatch"
	"github.com/vmc-cli/vmc/internal/prompt"
	"github.com/vmc-cli/vmc/internal/session"
	"github.com/vmc-cli/vmc/internal/target"
	"github.com/vmc-cli/vmc/internal/ui"
)

// env is the per-process wiring every command works through.
type env struct {
	Store    *config.Store
	Factory  *session.Factory
	Auth     *auth.Flow
	Shell    *dispatch.Shell
	Terminal *prompt.Terminal
	UI       *ui.UI
	Prober   target.Prober
	Colors   map[string]string

	Force bool
	Quiet bool
}

type envKey struct{}

func withEnv(ctx context.Context, e *env) context.Context {
	return context.WithValue(ctx, envKey{}, e)
}

// envFromContext returns the wiring installed by the root command.
func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	panic("cmd: command context has no environment")
}
