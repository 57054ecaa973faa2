// Package dispatch checks a command's preconditions and runs it, logging in
// again once if the target rejects the session.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/vmc-cli/vmc/internal/auth"
	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/config"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
)

// Level is how much session state a command needs before it runs.
type Level int

const (
	// None runs unconditionally.
	None Level = iota
	// Target needs a current target.
	Target
	// LoggedIn also needs a token, logging in first when prompting is allowed.
	LoggedIn
	// Full also needs an organization and a space on scoped targets.
	Full
)

func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Target:
		return "target"
	case LoggedIn:
		return "logged-in"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// maxAttempts bounds a command to its first run plus one replay after re-login.
const maxAttempts = 2

// Clients is the part of the client factory the shell needs.
type Clients interface {
	Client(ctx context.Context) (cloud.Client, error)
	Invalidate()
}

// TargetReader reports the current target.
type TargetReader interface {
	ReadTarget() (string, error)
}

// Authenticator runs the login flow.
type Authenticator interface {
	Login(ctx context.Context, in auth.Input) (config.SessionRecord, error)
}

// Notifier shows a warning to the user.
type Notifier interface {
	Warning(format string, args ...any)
}

// Command is the body of a CLI command. It fetches its client from the
// factory, which the gate has already primed.
type Command func(ctx context.Context) error

// Shell runs commands behind the precondition gate. One Shell lives for the
// whole process so the re-login happens at most once.
type Shell struct {
	Store   TargetReader
	Clients Clients
	Auth    Authenticator
	// Force turns a missing login into an error instead of a prompt and
	// reports a denial without logging in again.
	Force bool
	// Notice, when set, announces the re-login.
	Notice Notifier

	reauthenticated bool
}

// Run checks the preconditions of level and runs cmd. The first
// authorization denial in the process triggers one login and one replay;
// any later denial is returned as a Denied error.
func (s *Shell) Run(ctx context.Context, level Level, cmd Command) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.gate(ctx, level)
		if err == nil {
			err = cmd(ctx)
		}
		if err == nil || !cloud.IsDenied(err) {
			return err
		}

		if s.reauthenticated || s.Force || attempt == maxAttempts {
			break
		}
		s.reauthenticated = true

		if s.Notice != nil {
			s.Notice.Warning("Not authenticated! Try logging in:")
		}
		slog.Debug("authorization denied, logging in again", "attempt", attempt)
		if _, loginErr := s.Auth.Login(ctx, auth.Input{}); loginErr != nil {
			return loginErr
		}
		s.Clients.Invalidate()
	}

	return clierrors.Denied(cloud.DenialDescription(err), err)
}

// gate checks, in order: target, login, organization, space.
func (s *Shell) gate(ctx context.Context, level Level) error {
	if level == None {
		return nil
	}

	target, err := s.Store.ReadTarget()
	if err != nil {
		return err
	}
	if target == "" {
		return clierrors.ErrNoTarget
	}
	if level == Target {
		return nil
	}

	client, err := s.Clients.Client(ctx)
	if err != nil {
		return err
	}

	if !client.LoggedIn() {
		if s.Force {
			return clierrors.ErrNotLoggedIn
		}
		if _, err := s.Auth.Login(ctx, auth.Input{}); err != nil {
			return err
		}
		s.Clients.Invalidate()
		if client, err = s.Clients.Client(ctx); err != nil {
			return err
		}
	}
	if level == LoggedIn {
		return nil
	}

	if scoped, ok := client.(cloud.ScopedClient); ok {
		if scoped.CurrentOrganization() == nil {
			return clierrors.ErrNoOrganization
		}
		if scoped.CurrentSpace() == nil {
			return clierrors.ErrNoSpace
		}
	}
	return nil
}
