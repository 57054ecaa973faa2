// Package session owns the live API client for one process.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/config"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
)

// Builder constructs an API client of a given protocol version.
// cloud.Connector is the production implementation.
type Builder interface {
	Build(ctx context.Context, target, token string, v cloud.Version) (cloud.Client, error)
}

// Store is the slice of the config store the factory needs.
type Store interface {
	ReadTarget() (string, error)
	Record(target string) (config.SessionRecord, error)
	SaveRecord(target string, rec config.SessionRecord) error
	LogFile(target string) string
}

// Factory builds the client for a target on first use and caches it until
// Invalidate is called.
type Factory struct {
	store   Store
	builder Builder

	// Proxy is sent as the identity override on every request.
	Proxy string
	// Trace dumps requests and responses.
	Trace bool

	client cloud.Client
}

// NewFactory returns a factory reading session records from store.
func NewFactory(store Store, builder Builder) *Factory {
	return &Factory{store: store, builder: builder}
}

// Client returns the client for the current target.
func (f *Factory) Client(ctx context.Context) (cloud.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	target, err := f.store.ReadTarget()
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, clierrors.ErrNoTarget
	}
	return f.ClientFor(ctx, target)
}

// ClientFor returns the cached client, or builds one for target from its
// stored session record.
func (f *Factory) ClientFor(ctx context.Context, target string) (cloud.Client, error) {
	if f.client != nil {
		return f.client, nil
	}

	rec, err := f.store.Record(target)
	if err != nil {
		return nil, err
	}

	client, err := f.build(ctx, target, rec.Token, rec)
	if err != nil {
		return nil, err
	}

	if scoped, ok := client.(cloud.ScopedClient); ok {
		if err := attachScope(ctx, scoped, rec); err != nil {
			return nil, err
		}
	}

	f.client = client
	return client, nil
}

// Anonymous returns a new client for target with no token and no
// organization or space attached. It is never cached; login runs on it so a
// stale session cannot get in the way of signing in again.
func (f *Factory) Anonymous(ctx context.Context, target string) (cloud.Client, error) {
	rec, err := f.store.Record(target)
	if err != nil {
		return nil, err
	}
	return f.build(ctx, target, "", rec)
}

// Unscoped returns a new client for target carrying the stored token but no
// organization or space. It is never cached; selection runs on it so a
// deleted organization or space can be replaced.
func (f *Factory) Unscoped(ctx context.Context, target string) (cloud.Client, error) {
	rec, err := f.store.Record(target)
	if err != nil {
		return nil, err
	}
	return f.build(ctx, target, rec.Token, rec)
}

// build constructs and configures a client, pinning the protocol version
// into the session store the first time it is observed.
func (f *Factory) build(ctx context.Context, target, token string, rec config.SessionRecord) (cloud.Client, error) {
	client, err := f.builder.Build(ctx, target, token, cloud.Version(rec.ProtocolVersion))
	if err != nil {
		return nil, err
	}

	if f.Proxy != "" {
		client.SetProxy(f.Proxy)
	}
	client.SetTrace(f.Trace)
	client.SetLogPath(f.store.LogFile(target))

	if rec.ProtocolVersion == 0 {
		rec.ProtocolVersion = int(client.Version())
		if err := f.store.SaveRecord(target, rec); err != nil {
			return nil, fmt.Errorf("failed to save API version: %w", err)
		}
		slog.Debug("pinned API version", "target", target, "version", rec.ProtocolVersion)
	}

	return client, nil
}

func attachScope(ctx context.Context, client cloud.ScopedClient, rec config.SessionRecord) error {
	if rec.OrganizationID != "" {
		org, err := client.Organization(ctx, rec.OrganizationID)
		if err != nil {
			return fmt.Errorf("failed to load organization %s: %w", rec.OrganizationID, err)
		}
		client.SetCurrentOrganization(org)
	}
	if rec.SpaceID != "" {
		space, err := client.Space(ctx, rec.SpaceID)
		if err != nil {
			return fmt.Errorf("failed to load space %s: %w", rec.SpaceID, err)
		}
		client.SetCurrentSpace(space)
	}
	return nil
}

// Invalidate drops the cached client. Call it after the target changes,
// after logout, and after a fresh login.
func (f *Factory) Invalidate() {
	f.client = nil
}
