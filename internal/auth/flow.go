package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/config"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
	"github.com/vmc-cli/vmc/internal/orgspace"
)

// Prompter collects credential fields from the user.
type Prompter interface {
	Ask(ctx context.Context, label string) (string, error)
	AskSecret(ctx context.Context, label string) (string, error)
}

// Stepper runs fn while showing message, then reports how it went.
type Stepper interface {
	Step(ctx context.Context, message string, fn func() error) error
}

// Clients is the part of the client factory login needs.
type Clients interface {
	Anonymous(ctx context.Context, target string) (cloud.Client, error)
	Invalidate()
}

// Store is the part of the config store login needs.
type Store interface {
	ReadTarget() (string, error)
	Record(target string) (config.SessionRecord, error)
	SaveRecord(target string, rec config.SessionRecord) error
}

// Input is what the caller already knows before prompting.
type Input struct {
	// Credentials holds values given on the command line, keyed by field.
	Credentials cloud.Credentials
	Scope       orgspace.Request
}

// Flow signs the user in to the current target.
type Flow struct {
	Store    Store
	Clients  Clients
	Prompter Prompter
	Chooser  orgspace.Chooser
	Progress Stepper
	// Force disables every prompt; a rejected login fails at once.
	Force bool
}

// Login authenticates against the current target and stores the new token.
// On scoped targets it also settles the organization and space.
//
// Interactively, a rejected attempt forgets only the password-style fields
// and asks for them again. The loop ends when login succeeds or input ends.
func (f *Flow) Login(ctx context.Context, in Input) (config.SessionRecord, error) {
	target, err := f.Store.ReadTarget()
	if err != nil {
		return config.SessionRecord{}, err
	}
	if target == "" {
		return config.SessionRecord{}, clierrors.ErrNoTarget
	}

	client, err := f.Clients.Anonymous(ctx, target)
	if err != nil {
		return config.SessionRecord{}, err
	}

	prompts, err := client.LoginPrompts(ctx)
	if err != nil {
		return config.SessionRecord{}, fmt.Errorf("failed to get login prompts: %w", err)
	}

	creds := cloud.Credentials{}
	for field, value := range in.Credentials {
		if value != "" {
			creds[field] = value
		}
	}

	// Some servers tailor the remaining prompts to the identity.
	if identity, ok := findPrompt(prompts, cloud.IdentityField); ok && creds[identity.Field] == "" {
		if f.Force {
			return config.SessionRecord{}, missingField(identity)
		}
		if err := f.collect(ctx, identity, creds); err != nil {
			return config.SessionRecord{}, err
		}
	}

	var token string
	for attempt := 1; ; attempt++ {
		if !f.Force {
			for _, p := range prompts {
				if creds[p.Field] != "" {
					continue
				}
				if err := f.collect(ctx, p, creds); err != nil {
					return config.SessionRecord{}, err
				}
			}
		}

		err := f.step(ctx, "Authenticating", func() error {
			var loginErr error
			token, loginErr = client.Login(ctx, creds)
			return loginErr
		})
		if err == nil {
			break
		}
		if !cloud.IsDenied(err) {
			return config.SessionRecord{}, err
		}

		slog.Debug("login rejected", "target", target, "attempt", attempt)
		if f.Force {
			return config.SessionRecord{}, fmt.Errorf("%w: %s", clierrors.ErrLoginFailed, cloud.DenialDescription(err))
		}
		discarded := false
		for _, p := range prompts {
			if p.Kind == cloud.PromptPassword {
				delete(creds, p.Field)
				discarded = true
			}
		}
		if !discarded {
			return config.SessionRecord{}, fmt.Errorf("%w: %s", clierrors.ErrLoginFailed, cloud.DenialDescription(err))
		}
	}

	rec, err := f.Store.Record(target)
	if err != nil {
		return config.SessionRecord{}, err
	}
	rec.Token = token
	rec.ProtocolVersion = int(client.Version())

	var scopeErr error
	if scoped, ok := client.(cloud.ScopedClient); ok {
		resolver := &orgspace.Resolver{Client: scoped, Chooser: f.Chooser, Force: f.Force}
		scopeErr = resolver.Select(ctx, in.Scope, &rec)
	}

	// The token is kept even when selection fails.
	if err := f.Store.SaveRecord(target, rec); err != nil {
		return rec, err
	}
	f.Clients.Invalidate()

	return rec, scopeErr
}

func (f *Flow) collect(ctx context.Context, p cloud.Prompt, creds cloud.Credentials) error {
	if f.Prompter == nil {
		return missingField(p)
	}

	var (
		value string
		err   error
	)
	if p.Kind == cloud.PromptPassword {
		value, err = f.Prompter.AskSecret(ctx, p.Label)
	} else {
		value, err = f.Prompter.Ask(ctx, p.Label)
	}
	if err != nil {
		return err
	}
	creds[p.Field] = value
	return nil
}

func missingField(p cloud.Prompt) error {
	return clierrors.NewUserError(fmt.Sprintf("missing %s", p.Label), "Pass it as an argument or drop --force.")
}

func (f *Flow) step(ctx context.Context, message string, fn func() error) error {
	if f.Progress == nil {
		return fn()
	}
	return f.Progress.Step(ctx, message, fn)
}

func findPrompt(prompts []cloud.Prompt, field string) (cloud.Prompt, bool) {
	for _, p := range prompts {
		if p.Field == field {
			return p, true
		}
	}
	return cloud.Prompt{}, false
}
