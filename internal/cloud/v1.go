package cloud

import (
	"context"
	"fmt"
	"net/url"
)

// V1 speaks the flat, unscoped protocol.
type V1 struct {
	*conn
}

var _ Client = (*V1)(nil)

// NewV1 returns a v1 client for target, authenticated with token when non-empty.
func NewV1(target, token string, opts Options) *V1 {
	return &V1{conn: newConn(target, token, opts)}
}

func (c *V1) Version() Version { return Version1 }

type v1Info struct {
	Name        string     `json:"name"`
	Build       flexString `json:"build"`
	Support     string     `json:"support"`
	Version     flexString `json:"version"`
	Description string     `json:"description"`
	User        string     `json:"user"`
}

func (c *V1) Info(ctx context.Context) (*Info, error) {
	var raw v1Info
	if err := c.get(ctx, "/info", &raw); err != nil {
		return nil, err
	}
	return &Info{
		Name:        raw.Name,
		Build:       string(raw.Build),
		Description: raw.Description,
		Support:     raw.Support,
		Version:     string(raw.Version),
		User:        raw.User,
	}, nil
}

// LoginPrompts is fixed for v1 targets.
func (c *V1) LoginPrompts(context.Context) ([]Prompt, error) {
	return []Prompt{
		{Field: IdentityField, Kind: PromptText, Label: "Email"},
		{Field: "password", Kind: PromptPassword, Label: "Password"},
	}, nil
}

func (c *V1) Login(ctx context.Context, creds Credentials) (string, error) {
	email := creds[IdentityField]
	if email == "" {
		return "", fmt.Errorf("missing %s", IdentityField)
	}

	var resp struct {
		Token string `json:"token"`
	}
	path := "/users/" + url.PathEscape(email) + "/tokens"
	if err := c.postJSON(ctx, path, map[string]string{"password": creds["password"]}, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

func (c *V1) CurrentUser(ctx context.Context) (*User, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	if info.User == "" {
		return nil, nil
	}
	return &User{ID: info.User, Email: info.User}, nil
}

func (c *V1) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.postJSON(ctx, "/users", body, nil)
}
