// Package orgspace decides whether the cached organization and space are
// still usable and drives their selection on scoped targets.
package orgspace

import (
	"context"
	"log/slog"
	"sort"

	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/config"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
)

// Chooser asks the user to pick one of choices.
type Chooser interface {
	Choose(ctx context.Context, question string, choices []string) (string, error)
}

// Request carries explicit --org/--space input. An explicit flag always
// forces reselection, even when the cached value is valid.
type Request struct {
	Org            string
	OrgRequested   bool
	Space          string
	SpaceRequested bool
}

// Resolver validates and selects the organization and space of a scoped client.
type Resolver struct {
	Client  cloud.ScopedClient
	Chooser Chooser
	// Force disables prompting; an ambiguous choice becomes an error.
	Force bool
}

// IsOrgValid reports whether user belongs to the organization id. Lookup
// failures count as invalid.
func (r *Resolver) IsOrgValid(ctx context.Context, id string, user *cloud.User) bool {
	if id == "" {
		return false
	}
	org, err := r.Client.Organization(ctx, id)
	if err != nil {
		slog.Debug("cached organization is not usable", "organization", id, "error", err)
		return false
	}
	return org.HasUser(user)
}

// IsSpaceValid reports whether user is a developer in the space id. Lookup
// failures count as invalid.
func (r *Resolver) IsSpaceValid(ctx context.Context, id string, user *cloud.User) bool {
	if id == "" {
		return false
	}
	space, err := r.Client.Space(ctx, id)
	if err != nil {
		slog.Debug("cached space is not usable", "space", id, "error", err)
		return false
	}
	return space.HasDeveloper(user)
}

// Select reselects the organization and space where needed and writes the
// chosen ids into rec. It does not persist rec.
func (r *Resolver) Select(ctx context.Context, req Request, rec *config.SessionRecord) error {
	user, err := r.Client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	orgChanged := false
	if req.OrgRequested || !r.IsOrgValid(ctx, rec.OrganizationID, user) {
		orgs, err := r.Client.Organizations(ctx)
		if err != nil {
			return err
		}
		if len(orgs) == 0 {
			return clierrors.ErrNoOrganizations
		}

		org, err := r.pickOrg(ctx, orgs, req)
		if err != nil {
			return err
		}

		orgChanged = true
		rec.OrganizationID = org.ID
		r.Client.SetCurrentOrganization(org)
		slog.Debug("selected organization", "organization", org.Name)
	}

	if orgChanged || req.SpaceRequested || !r.IsSpaceValid(ctx, rec.SpaceID, user) {
		spaces, err := r.Client.Spaces(ctx)
		if err != nil {
			return err
		}

		var inOrg []cloud.Space
		for _, s := range spaces {
			if s.OrganizationID == rec.OrganizationID {
				inOrg = append(inOrg, s)
			}
		}
		if len(inOrg) == 0 {
			return clierrors.ErrNoSpaces
		}

		space, err := r.pickSpace(ctx, inOrg, req)
		if err != nil {
			return err
		}

		rec.SpaceID = space.ID
		r.Client.SetCurrentSpace(space)
		slog.Debug("selected space", "space", space.Name)
	}

	return nil
}

func (r *Resolver) pickOrg(ctx context.Context, orgs []cloud.Organization, req Request) (*cloud.Organization, error) {
	names := make([]string, len(orgs))
	for i, o := range orgs {
		names[i] = o.Name
	}
	idx, err := r.pick(ctx, "organization", "Organization", "org", names, req.Org, req.OrgRequested)
	if err != nil {
		return nil, err
	}
	org := orgs[idx]
	return &org, nil
}

func (r *Resolver) pickSpace(ctx context.Context, spaces []cloud.Space, req Request) (*cloud.Space, error) {
	names := make([]string, len(spaces))
	for i, s := range spaces {
		names[i] = s.Name
	}
	idx, err := r.pick(ctx, "space", "Space", "space", names, req.Space, req.SpaceRequested)
	if err != nil {
		return nil, err
	}
	space := spaces[idx]
	return &space, nil
}

// pick applies the zero/one/many rule and returns the index of the chosen name.
func (r *Resolver) pick(ctx context.Context, kind, question, flag string, names []string, given string, requested bool) (int, error) {
	if len(names) == 1 && !requested {
		return 0, nil
	}

	name := given
	if name == "" {
		if r.Force || r.Chooser == nil {
			return -1, clierrors.AmbiguousChoiceError(kind, flag)
		}
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)

		var err error
		name, err = r.Chooser.Choose(ctx, question, sorted)
		if err != nil {
			return -1, err
		}
	}

	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return -1, clierrors.UnknownNameError(kind, name)
}
