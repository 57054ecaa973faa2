// Package cloudtest provides in-memory cloud clients for tests.
package cloudtest

import (
	"context"
	"net/http"

	"github.com/vmc-cli/vmc/internal/cloud"
)

// Denied returns the error a target produces when it rejects a request.
func Denied(description string) error {
	return &cloud.APIError{
		StatusCode: http.StatusForbidden,
		Method:     http.MethodGet,
		URL:        "/fake",
		Response:   &cloud.ErrorResponse{Description: description},
	}
}

// NotFound returns the error a target produces for a missing resource.
func NotFound(description string) error {
	return &cloud.APIError{
		StatusCode: http.StatusNotFound,
		Method:     http.MethodGet,
		URL:        "/fake",
		Response:   &cloud.ErrorResponse{Description: description},
	}
}

// Fake is a v1 client. Login accepts Password for any identity unless
// LoginFunc is set.
type Fake struct {
	TargetURL  string
	TokenValue string
	InfoValue  cloud.Info
	User       *cloud.User
	Prompts    []cloud.Prompt
	Password   string
	LoginFunc  func(cloud.Credentials) (string, error)

	// LoginCalls records the credentials of every login attempt.
	LoginCalls []cloud.Credentials
	Registered []string

	Proxy   string
	Trace   bool
	LogPath string
}

var _ cloud.Client = (*Fake)(nil)

func (f *Fake) Target() string { return f.TargetURL }

func (f *Fake) Version() cloud.Version { return cloud.Version1 }

func (f *Fake) Token() string { return f.TokenValue }

func (f *Fake) LoggedIn() bool { return f.TokenValue != "" }

func (f *Fake) Info(context.Context) (*cloud.Info, error) {
	info := f.InfoValue
	return &info, nil
}

func (f *Fake) LoginPrompts(context.Context) ([]cloud.Prompt, error) {
	if f.Prompts != nil {
		return f.Prompts, nil
	}
	return []cloud.Prompt{
		{Field: cloud.IdentityField, Kind: cloud.PromptText, Label: "Email"},
		{Field: "password", Kind: cloud.PromptPassword, Label: "Password"},
	}, nil
}

func (f *Fake) Login(_ context.Context, creds cloud.Credentials) (string, error) {
	recorded := make(cloud.Credentials, len(creds))
	for k, v := range creds {
		recorded[k] = v
	}
	f.LoginCalls = append(f.LoginCalls, recorded)

	var (
		token string
		err   error
	)
	if f.LoginFunc != nil {
		token, err = f.LoginFunc(creds)
	} else if creds["password"] == f.Password {
		token = "token-for-" + creds[cloud.IdentityField]
	} else {
		err = Denied("Invalid password")
	}
	if err != nil {
		return "", err
	}
	f.TokenValue = token
	return token, nil
}

func (f *Fake) CurrentUser(context.Context) (*cloud.User, error) {
	return f.User, nil
}

func (f *Fake) Register(_ context.Context, email, _ string) error {
	f.Registered = append(f.Registered, email)
	return nil
}

func (f *Fake) SetProxy(identity string) { f.Proxy = identity }

func (f *Fake) SetTrace(enabled bool) { f.Trace = enabled }

func (f *Fake) SetLogPath(path string) { f.LogPath = path }

// ScopedFake is a v2 client backed by fixed organization and space lists.
type ScopedFake struct {
	Fake

	Orgs      []cloud.Organization
	SpaceList []cloud.Space
	OrgsErr   error
	SpacesErr error

	// Lookups counts Organization and Space calls.
	Lookups int

	org   *cloud.Organization
	space *cloud.Space
}

var _ cloud.ScopedClient = (*ScopedFake)(nil)

func (f *ScopedFake) Version() cloud.Version { return cloud.Version2 }

func (f *ScopedFake) Register(context.Context, string, string) error {
	return cloud.ErrUnsupported
}

func (f *ScopedFake) Organizations(context.Context) ([]cloud.Organization, error) {
	if f.OrgsErr != nil {
		return nil, f.OrgsErr
	}
	return f.Orgs, nil
}

func (f *ScopedFake) Organization(_ context.Context, id string) (*cloud.Organization, error) {
	f.Lookups++
	if f.OrgsErr != nil {
		return nil, f.OrgsErr
	}
	for i := range f.Orgs {
		if f.Orgs[i].ID == id {
			org := f.Orgs[i]
			return &org, nil
		}
	}
	return nil, NotFound("The organization could not be found: " + id)
}

func (f *ScopedFake) Spaces(context.Context) ([]cloud.Space, error) {
	if f.SpacesErr != nil {
		return nil, f.SpacesErr
	}
	return f.SpaceList, nil
}

func (f *ScopedFake) Space(_ context.Context, id string) (*cloud.Space, error) {
	f.Lookups++
	if f.SpacesErr != nil {
		return nil, f.SpacesErr
	}
	for i := range f.SpaceList {
		if f.SpaceList[i].ID == id {
			space := f.SpaceList[i]
			return &space, nil
		}
	}
	return nil, NotFound("The app space could not be found: " + id)
}

func (f *ScopedFake) CurrentOrganization() *cloud.Organization { return f.org }

func (f *ScopedFake) SetCurrentOrganization(org *cloud.Organization) { f.org = org }

func (f *ScopedFake) CurrentSpace() *cloud.Space { return f.space }

func (f *ScopedFake) SetCurrentSpace(space *cloud.Space) { f.space = space }

// BuildCall records one Builder.Build invocation.
type BuildCall struct {
	Target  string
	Token   string
	Version cloud.Version
}

// Builder hands out fakes. Unknown versions resolve to Detected.
type Builder struct {
	Detected cloud.Version
	// Configure adjusts every new client before it is returned.
	Configure func(cloud.Client)
	Err       error

	Calls []BuildCall
	Last  cloud.Client
}

func (b *Builder) Build(_ context.Context, target, token string, v cloud.Version) (cloud.Client, error) {
	b.Calls = append(b.Calls, BuildCall{Target: target, Token: token, Version: v})
	if b.Err != nil {
		return nil, b.Err
	}

	if v == cloud.VersionUnknown {
		v = b.Detected
	}

	var client cloud.Client
	if v == cloud.Version2 {
		client = &ScopedFake{Fake: Fake{TargetURL: target, TokenValue: token}}
	} else {
		client = &Fake{TargetURL: target, TokenValue: token}
	}
	if b.Configure != nil {
		b.Configure(client)
	}
	b.Last = client
	return client, nil
}
