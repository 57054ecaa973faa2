package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestMockServer_HandleJSON(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	response := map[string]string{"guid": "org-123", "name": "acme"}
	ms.HandleJSON("GET", "/v2/organizations/org-123", http.StatusOK, response)

	resp, err := http.Get(ms.URL() + "/v2/organizations/org-123")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if result["guid"] != "org-123" {
		t.Errorf("expected guid org-123, got %s", result["guid"])
	}
}

func TestMockServer_HandleError(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleError("GET", "/v2/spaces/missing", http.StatusNotFound, 40004, "The app space could not be found")

	resp, err := http.Get(ms.URL() + "/v2/spaces/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "could not be found") {
		t.Errorf("expected description in body: %s", body)
	}
}

func TestMockServer_HandleUnavailable(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleUnavailable("GET", "/info", 1, map[string]string{"name": "vcap"})

	for i, want := range []int{http.StatusServiceUnavailable, http.StatusOK} {
		resp, err := http.Get(ms.URL() + "/info")
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("request %d: expected %d, got %d", i, want, resp.StatusCode)
		}
	}
}

func TestMockServer_Requests(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleInfo(2, "")

	req, _ := http.NewRequest("GET", ms.URL()+"/info", nil)
	req.Header.Set("Proxy-User", "admin@example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	reqs := ms.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 recorded request, got %d", len(reqs))
	}
	if got := reqs[0].Header.Get("Proxy-User"); got != "admin@example.com" {
		t.Errorf("Proxy-User = %q", got)
	}
}

func TestMockServer_Reset(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	ms.HandleJSON("GET", "/info", http.StatusOK, map[string]string{"ok": "true"})
	ms.Reset()

	resp, err := http.Get(ms.URL() + "/info")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after reset, got %d", resp.StatusCode)
	}
}
