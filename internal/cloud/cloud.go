// Package cloud defines the API client capability the CLI core consumes and
// provides the HTTP implementations for both protocol generations.
//
// The variants form a closed set: V1 (flat app model), V2 (organization and
// space scoped) and an auto-detecting constructor for targets whose version
// has never been observed. Organization/space behavior exists only on
// ScopedClient; callers check for it with a type assertion:
//
//	if scoped, ok := client.(cloud.ScopedClient); ok {
//	    orgs, err := scoped.Organizations(ctx)
//	}
package cloud

import (
	"context"
	"errors"
)

// Version identifies the protocol generation a target speaks.
type Version int

const (
	// VersionUnknown means the version has not been observed yet.
	VersionUnknown Version = 0
	Version1       Version = 1
	Version2       Version = 2
)

// PromptKind distinguishes masked entry from plain entry.
type PromptKind string

const (
	PromptText     PromptKind = "text"
	PromptPassword PromptKind = "password"
)

// IdentityField is the credential field collected before any other prompt.
const IdentityField = "username"

// Prompt describes one credential field the target asks for.
type Prompt struct {
	Field string
	Kind  PromptKind
	Label string
}

// Credentials maps a credential field to the value entered for it.
type Credentials map[string]string

// ErrUnsupported is returned by operations a protocol version does not offer.
var ErrUnsupported = errors.New("not implemented for this API version")

// Info is the target's self-description.
type Info struct {
	Name        string
	Build       string
	Description string
	Support     string
	Version     string
	User        string
}

// User is an account as seen by the target.
type User struct {
	ID    string
	Email string
}

// Organization is a v2 organization and its members.
type Organization struct {
	ID    string
	Name  string
	Users []User
}

// HasUser reports whether u is a member of the organization.
func (o *Organization) HasUser(u *User) bool {
	return containsUser(o.Users, u)
}

// Space is a v2 space, scoped to one organization.
type Space struct {
	ID             string
	Name           string
	OrganizationID string
	Developers     []User
}

// HasDeveloper reports whether u is a developer in the space.
func (s *Space) HasDeveloper(u *User) bool {
	return containsUser(s.Developers, u)
}

func containsUser(users []User, u *User) bool {
	if u == nil {
		return false
	}
	for _, member := range users {
		if member.ID == u.ID {
			return true
		}
	}
	return false
}

// Client is the capability shared by every protocol version.
type Client interface {
	Target() string
	// Version reports the concrete protocol version this client speaks.
	Version() Version
	Token() string
	LoggedIn() bool

	Info(ctx context.Context) (*Info, error)
	LoginPrompts(ctx context.Context) ([]Prompt, error)
	// Login authenticates and returns the new token; the client keeps using it.
	Login(ctx context.Context, creds Credentials) (string, error)
	CurrentUser(ctx context.Context) (*User, error)
	Register(ctx context.Context, email, password string) error

	SetProxy(identity string)
	SetTrace(enabled bool)
	SetLogPath(path string)
}

// ScopedClient is implemented only by the v2 variant.
type ScopedClient interface {
	Client

	Organizations(ctx context.Context) ([]Organization, error)
	Organization(ctx context.Context, id string) (*Organization, error)
	Spaces(ctx context.Context) ([]Space, error)
	Space(ctx context.Context, id string) (*Space, error)

	CurrentOrganization() *Organization
	SetCurrentOrganization(org *Organization)
	CurrentSpace() *Space
	SetCurrentSpace(space *Space)
}
