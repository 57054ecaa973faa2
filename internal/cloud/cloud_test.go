package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vmc-cli/vmc/internal/debug"
	"github.com/vmc-cli/vmc/internal/testutil"
)

func testOptions() Options {
	return Options{RetryWaitMin: time.Millisecond}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		version interface{}
		want    Version
	}{
		{"numeric 2", 2, Version2},
		{"string 2", "2", Version2},
		{"numeric 1", 1, Version1},
		{"legacy string", "0.999", Version1},
		{"missing", nil, Version1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := testutil.NewMockServer()
			defer ms.Close()

			body := map[string]interface{}{"name": "vcap"}
			if tt.version != nil {
				body["version"] = tt.version
			}
			ms.HandleJSON(http.MethodGet, "/info", http.StatusOK, body)

			got, err := Detect(context.Background(), ms.URL(), testOptions())
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetect_Unreachable(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.HandleError(http.MethodGet, "/info", http.StatusNotFound, 10000, "Unknown request")

	if _, err := Detect(context.Background(), ms.URL(), testOptions()); err == nil {
		t.Fatal("expected error when /info is missing")
	}
}

func TestConnector_Build(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.HandleInfo(2, "")

	conn := Connector{Options: testOptions()}

	client, err := conn.Build(context.Background(), ms.URL(), "tok", Version1)
	if err != nil {
		t.Fatalf("Build(v1) error = %v", err)
	}
	if client.Version() != Version1 {
		t.Errorf("Version() = %v, want v1", client.Version())
	}
	if len(ms.Requests()) != 0 {
		t.Errorf("known version should not probe, got %d requests", len(ms.Requests()))
	}

	client, err = conn.Build(context.Background(), ms.URL(), "tok", VersionUnknown)
	if err != nil {
		t.Fatalf("Build(unknown) error = %v", err)
	}
	if _, ok := client.(ScopedClient); !ok {
		t.Errorf("expected a scoped client, got %T", client)
	}
	if client.Token() != "tok" || !client.LoggedIn() {
		t.Errorf("token not carried: %q", client.Token())
	}

	if _, err := conn.Build(context.Background(), ms.URL(), "", Version(7)); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestV1_Info(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.HandleJSON(http.MethodGet, "/info", http.StatusOK, map[string]interface{}{
		"name":        "vcap",
		"build":       2222,
		"support":     "http://support.example.com",
		"version":     "0.999",
		"description": "VMware's Cloud Application Platform",
		"user":        "dev@example.com",
	})

	info, err := NewV1(ms.URL(), "", testOptions()).Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Build != "2222" || info.Version != "0.999" || info.User != "dev@example.com" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestV1_Login(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()

	ms.Handle(http.MethodPost, "/users/dev@example.com/tokens", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":200,"description":"Invalid password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"04085b0849221261"}`))
	})

	client := NewV1(ms.URL(), "", testOptions())
	prompts, _ := client.LoginPrompts(context.Background())
	if len(prompts) != 2 || prompts[0].Field != IdentityField || prompts[1].Kind != PromptPassword {
		t.Fatalf("unexpected prompts: %+v", prompts)
	}

	_, err := client.Login(context.Background(), Credentials{"username": "dev@example.com", "password": "wrong"})
	if !IsDenied(err) {
		t.Fatalf("expected denial, got %v", err)
	}
	if got := DenialDescription(err); got != "Invalid password" {
		t.Errorf("DenialDescription() = %q", got)
	}
	if client.LoggedIn() {
		t.Error("denied login must not set a token")
	}

	token, err := client.Login(context.Background(), Credentials{"username": "dev@example.com", "password": "secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "04085b0849221261" || client.Token() != token {
		t.Errorf("token = %q, client token = %q", token, client.Token())
	}
}

func TestV1_Register(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()

	var got map[string]string
	ms.Handle(http.MethodPost, "/users", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := NewV1(ms.URL(), "", testOptions()).Register(context.Background(), "new@example.com", "pw"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if got["email"] != "new@example.com" || got["password"] != "pw" {
		t.Errorf("unexpected body: %v", got)
	}
}

func newV2Server(t *testing.T) *testutil.MockServer {
	t.Helper()
	ms := testutil.NewMockServer()
	t.Cleanup(ms.Close)
	ms.HandleInfo(2, ms.URL())
	return ms
}

func TestV2_LoginPromptsKeepServerOrder(t *testing.T) {
	ms := newV2Server(t)
	ms.Handle(http.MethodGet, "/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login prompts must not carry a token, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"prompts":{"username":["text","Email"],"passcode":["password","One Time Code"],"password":["password","Password"]}}`))
	})

	prompts, err := NewV2(ms.URL(), "bearer old", testOptions()).LoginPrompts(context.Background())
	if err != nil {
		t.Fatalf("LoginPrompts() error = %v", err)
	}

	want := []Prompt{
		{Field: "username", Kind: PromptText, Label: "Email"},
		{Field: "passcode", Kind: PromptPassword, Label: "One Time Code"},
		{Field: "password", Kind: PromptPassword, Label: "Password"},
	}
	if len(prompts) != len(want) {
		t.Fatalf("got %d prompts, want %d", len(prompts), len(want))
	}
	for i := range want {
		if prompts[i] != want[i] {
			t.Errorf("prompt %d = %+v, want %+v", i, prompts[i], want[i])
		}
	}
}

func TestParsePrompts_Invalid(t *testing.T) {
	if _, err := parsePrompts(json.RawMessage(`["username"]`)); err == nil {
		t.Error("expected error for non-object prompts")
	}
	prompts, err := parsePrompts(nil)
	if err != nil || prompts != nil {
		t.Errorf("empty prompts = %v, %v", prompts, err)
	}
}

func TestV2_Login(t *testing.T) {
	ms := newV2Server(t)
	ms.Handle(http.MethodPost, "/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cf" || pass != "" {
			t.Errorf("expected basic auth cf:, got %q:%q (%v)", user, pass, ok)
		}
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "password" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"abc123","token_type":"bearer"}`))
	})

	client := NewV2(ms.URL(), "", testOptions())

	_, err := client.Login(context.Background(), Credentials{"username": "dev@example.com", "password": "nope"})
	if !IsDenied(err) || DenialDescription(err) != "Bad credentials" {
		t.Fatalf("expected Bad credentials denial, got %v", err)
	}

	token, err := client.Login(context.Background(), Credentials{"username": "dev@example.com", "password": "secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "bearer abc123" {
		t.Errorf("token = %q, want %q", token, "bearer abc123")
	}
}

func TestV2_Register(t *testing.T) {
	err := NewV2("http://unused.example.com", "", testOptions()).Register(context.Background(), "a", "b")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Register() = %v, want ErrUnsupported", err)
	}
}

func TestV2_OrganizationsPaginated(t *testing.T) {
	ms := newV2Server(t)
	ms.Handle(http.MethodGet, "/v2/organizations", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"next_url":null,"resources":[
				{"metadata":{"guid":"org-2"},"entity":{"name":"beta","users":[]}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"next_url":"/v2/organizations?page=2","resources":[
			{"metadata":{"guid":"org-1"},"entity":{"name":"acme","users":[{"metadata":{"guid":"u-1"},"entity":{"username":"dev@example.com"}}]}}]}`))
	})

	orgs, err := NewV2(ms.URL(), "bearer t", testOptions()).Organizations(context.Background())
	if err != nil {
		t.Fatalf("Organizations() error = %v", err)
	}
	if len(orgs) != 2 || orgs[0].Name != "acme" || orgs[1].ID != "org-2" {
		t.Fatalf("unexpected orgs: %+v", orgs)
	}
	if !orgs[0].HasUser(&User{ID: "u-1"}) || orgs[1].HasUser(&User{ID: "u-1"}) {
		t.Error("membership not decoded")
	}
}

func TestV2_SpaceAndScope(t *testing.T) {
	ms := newV2Server(t)
	ms.HandleJSON(http.MethodGet, "/v2/spaces/space-1", http.StatusOK, map[string]interface{}{
		"metadata": map[string]string{"guid": "space-1"},
		"entity": map[string]interface{}{
			"name":              "dev",
			"organization_guid": "org-1",
			"developers":        []interface{}{},
		},
	})
	ms.HandleError(http.MethodGet, "/v2/spaces/gone", http.StatusNotFound, 40004, "The app space could not be found: gone")

	client := NewV2(ms.URL(), "bearer t", testOptions())
	space, err := client.Space(context.Background(), "space-1")
	if err != nil {
		t.Fatalf("Space() error = %v", err)
	}
	if space.Name != "dev" || space.OrganizationID != "org-1" {
		t.Errorf("unexpected space: %+v", space)
	}

	if _, err := client.Space(context.Background(), "gone"); err == nil || IsDenied(err) {
		t.Errorf("expected a not-found error, got %v", err)
	}

	client.SetCurrentSpace(space)
	if client.CurrentSpace() != space {
		t.Error("current space not kept")
	}
	if client.CurrentOrganization() != nil {
		t.Error("organization should be unset")
	}
}

func TestRequestHeaders(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.HandleInfo(1, "")

	client := NewV1(ms.URL(), "secret-token", testOptions())
	client.SetProxy("admin@example.com")
	if _, err := client.Info(context.Background()); err != nil {
		t.Fatalf("Info() error = %v", err)
	}

	reqs := ms.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	h := reqs[0].Header
	if h.Get("Authorization") != "secret-token" {
		t.Errorf("Authorization = %q", h.Get("Authorization"))
	}
	if h.Get(ProxyUserHeader) != "admin@example.com" {
		t.Errorf("%s = %q", ProxyUserHeader, h.Get(ProxyUserHeader))
	}
	if h.Get(debug.RequestIDHeader) == "" {
		t.Error("expected a request id")
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.HandleUnavailable(http.MethodGet, "/info", 1, map[string]string{"name": "vcap", "version": "1"})

	info, err := NewV1(ms.URL(), "", testOptions()).Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Name != "vcap" {
		t.Errorf("Name = %q", info.Name)
	}
	if len(ms.Requests()) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(ms.Requests()))
	}
}

func TestDoesNotRetryPost(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.HandleUnavailable(http.MethodPost, "/users", 1, map[string]string{})

	err := NewV1(ms.URL(), "", testOptions()).Register(context.Background(), "new@example.com", "pw")
	if err == nil {
		t.Fatal("expected the 503 to be returned")
	}
	if len(ms.Requests()) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(ms.Requests()))
	}
}

func TestRequestLogAndTrace(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.HandleInfo(1, "")

	var trace bytes.Buffer
	opts := testOptions()
	opts.TraceOutput = &trace

	logPath := filepath.Join(t.TempDir(), "logs", "api.example.com.log")
	client := NewV1(ms.URL(), "", opts)
	client.SetLogPath(logPath)
	client.SetTrace(true)

	if _, err := client.Info(context.Background()); err != nil {
		t.Fatalf("Info() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	id := ms.Requests()[0].Header.Get(debug.RequestIDHeader)
	line := strings.TrimSpace(string(data))
	if !strings.Contains(line, id) || !strings.Contains(line, "GET") || !strings.Contains(line, "-> 200") {
		t.Errorf("unexpected log line: %q", line)
	}

	if !strings.Contains(trace.String(), "--> GET") {
		t.Errorf("expected trace output, got %q", trace.String())
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":2,"b":"0.999","c":null}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.A != "2" || v.B != "0.999" || v.C != "" {
		t.Errorf("got %+v", v)
	}
}
