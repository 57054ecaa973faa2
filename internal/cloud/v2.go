package cloud

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// loginClientID is the public OAuth client the CLI authenticates as.
const loginClientID = "cf"

// V2 speaks the organization and space scoped protocol.
type V2 struct {
	*conn

	authEndpoint string
	org          *Organization
	space        *Space
}

var _ ScopedClient = (*V2)(nil)

// NewV2 returns a v2 client for target, authenticated with token when non-empty.
func NewV2(target, token string, opts Options) *V2 {
	return &V2{conn: newConn(target, token, opts)}
}

func (c *V2) Version() Version { return Version2 }

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type v2Info struct {
	Name                  string     `json:"name"`
	Build                 flexString `json:"build"`
	Support               string     `json:"support"`
	Version               flexString `json:"version"`
	Description           string     `json:"description"`
	User                  string     `json:"user"`
	AuthorizationEndpoint string     `json:"authorization_endpoint"`
}

func (c *V2) info(ctx context.Context) (*v2Info, error) {
	var raw v2Info
	if err := c.get(ctx, "/info", &raw); err != nil {
		return nil, err
	}
	if raw.AuthorizationEndpoint != "" {
		c.authEndpoint = strings.TrimSuffix(raw.AuthorizationEndpoint, "/")
	}
	return &raw, nil
}

func (c *V2) Info(ctx context.Context) (*Info, error) {
	raw, err := c.info(ctx)
	if err != nil {
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

func (c *V2) authorizationEndpoint(ctx context.Context) (string, error) {
	if c.authEndpoint != "" {
		return c.authEndpoint, nil
	}
	if _, err := c.info(ctx); err != nil {
		return "", err
	}
	if c.authEndpoint == "" {
		return "", fmt.Errorf("target %s does not advertise an authorization endpoint", c.target)
	}
	return c.authEndpoint, nil
}

// LoginPrompts asks the authorization server which fields it needs, in the
// order the server lists them.
func (c *V2) LoginPrompts(ctx context.Context) ([]Prompt, error) {
	auth, err := c.authorizationEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Prompts json.RawMessage `json:"prompts"`
	}
	header := http.Header{"Authorization": []string{""}}
	if err := c.do(ctx, http.MethodGet, auth+"/login", nil, header, &raw); err != nil {
		return nil, err
	}
	return parsePrompts(raw.Prompts)
}

// parsePrompts decodes {"field": ["kind", "label"], ...} keeping object order.
func parsePrompts(data json.RawMessage) ([]Prompt, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode prompts: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("failed to decode prompts: expected object")
	}

	var prompts []Prompt
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to decode prompts: %w", err)
		}
		field, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("failed to decode prompts: unexpected key %v", tok)
		}

		var pair []string
		if err := dec.Decode(&pair); err != nil {
			return nil, fmt.Errorf("failed to decode prompt %q: %w", field, err)
		}

		p := Prompt{Field: field, Kind: PromptText, Label: field}
		if len(pair) > 0 && pair[0] == string(PromptPassword) {
			p.Kind = PromptPassword
		}
		if len(pair) > 1 && pair[1] != "" {
			p.Label = pair[1]
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login runs the OAuth password grant with every collected credential.
func (c *V2) Login(ctx context.Context, creds Credentials) (string, error) {
	auth, err := c.authorizationEndpoint(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	for field, value := range creds {
		form.Set(field, value)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(loginClientID + ":"))
	header := http.Header{"Authorization": []string{"Basic " + basic}}

	var resp tokenResponse
	if err := c.postForm(ctx, auth+"/oauth/token", form, header, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("authorization server returned no access token")
	}

	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	c.token = tokenType + " " + resp.AccessToken
	return c.token, nil
}

func (c *V2) CurrentUser(ctx context.Context) (*User, error) {
	raw, err := c.info(ctx)
	if err != nil {
		return nil, err
	}
	if raw.User == "" {
		return nil, nil
	}
	return &User{ID: raw.User}, nil
}

func (c *V2) Register(context.Context, string, string) error {
	return ErrUnsupported
}

type metadata struct {
	GUID string `json:"guid"`
}

type userResource struct {
	Metadata metadata `json:"metadata"`
	Entity   struct {
		Username string `json:"username"`
	} `json:"entity"`
}

func (r userResource) user() User {
	return User{ID: r.Metadata.GUID, Email: r.Entity.Username}
}

func users(resources []userResource) []User {
	out := make([]User, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.user())
	}
	return out
}

type orgResource struct {
	Metadata metadata `json:"metadata"`
	Entity   struct {
		Name  string         `json:"name"`
		Users []userResource `json:"users"`
	} `json:"entity"`
}

func (r orgResource) organization() Organization {
	return Organization{ID: r.Metadata.GUID, Name: r.Entity.Name, Users: users(r.Entity.Users)}
}

type spaceResource struct {
	Metadata metadata `json:"metadata"`
	Entity   struct {
		Name             string         `json:"name"`
		OrganizationGUID string         `json:"organization_guid"`
		Developers       []userResource `json:"developers"`
	} `json:"entity"`
}

func (r spaceResource) space() Space {
	return Space{
		ID:             r.Metadata.GUID,
		Name:           r.Entity.Name,
		OrganizationID: r.Entity.OrganizationGUID,
		Developers:     users(r.Entity.Developers),
	}
}

type page[T any] struct {
	NextURL   string `json:"next_url"`
	Resources []T    `json:"resources"`
}

// list follows next_url until the collection is exhausted.
func list[T any](ctx context.Context, c *conn, path string) ([]T, error) {
	var all []T
	for path != "" {
		var p page[T]
		if err := c.get(ctx, path, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Resources...)
		path = p.NextURL
	}
	return all, nil
}

func (c *V2) Organizations(ctx context.Context) ([]Organization, error) {
	resources, err := list[orgResource](ctx, c.conn, "/v2/organizations?inline-relations-depth=1")
	if err != nil {
		return nil, err
	}
	orgs := make([]Organization, 0, len(resources))
	for _, r := range resources {
		orgs = append(orgs, r.organization())
	}
	return orgs, nil
}

func (c *V2) Organization(ctx context.Context, id string) (*Organization, error) {
	var r orgResource
	if err := c.get(ctx, "/v2/organizations/"+url.PathEscape(id)+"?inline-relations-depth=1", &r); err != nil {
		return nil, err
	}
	org := r.organization()
	return &org, nil
}

func (c *V2) Spaces(ctx context.Context) ([]Space, error) {
	resources, err := list[spaceResource](ctx, c.conn, "/v2/spaces?inline-relations-depth=1")
	if err != nil {
		return nil, err
	}
	spaces := make([]Space, 0, len(resources))
	for _, r := range resources {
		spaces = append(spaces, r.space())
	}
	return spaces, nil
}

func (c *V2) Space(ctx context.Context, id string) (*Space, error) {
	var r spaceResource
	if err := c.get(ctx, "/v2/spaces/"+url.PathEscape(id)+"?inline-relations-depth=1", &r); err != nil {
		return nil, err
	}
	space := r.space()
	return &space, nil
}

func (c *V2) CurrentOrganization() *Organization { return c.org }

func (c *V2) SetCurrentOrganization(org *Organization) { c.org = org }

func (c *V2) CurrentSpace() *Space { return c.space }

func (c *V2) SetCurrentSpace(space *Space) { c.space = space }
