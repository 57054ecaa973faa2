package target

import (
	"context"
	"net"
	"testing"
	"time"
)

type stubProber struct {
	reachable bool
	calls     []string
}

func (p *stubProber) Reachable(_ context.Context, host, port string) bool {
	p.calls = append(p.calls, net.JoinHostPort(host, port))
	return p.reachable
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		reachable bool
		want      string
		probed    string
	}{
		{"https when reachable", "api.example.com", true, "https://api.example.com", "api.example.com:443"},
		{"http when unreachable", "api.example.com", false, "http://api.example.com", "api.example.com:443"},
		{"explicit https kept", "https://api.example.com/", false, "https://api.example.com", ""},
		{"explicit http kept", "http://api.example.com", true, "http://api.example.com", ""},
		{"trailing slash trimmed once", "api.example.com//", true, "https://api.example.com/", "api.example.com:443"},
		{"path and port ignored for probe", "api.example.com:8080/v2/", false, "http://api.example.com:8080/v2", "api.example.com:443"},
		{"whitespace trimmed", "  api.example.com \n", true, "https://api.example.com", "api.example.com:443"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProber{reachable: tt.reachable}
			got := Normalize(context.Background(), tt.input, p)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if tt.probed == "" {
				if len(p.calls) != 0 {
					t.Errorf("expected no probe, got %v", p.calls)
				}
				return
			}
			if len(p.calls) != 1 || p.calls[0] != tt.probed {
				t.Errorf("probe calls = %v, want [%s]", p.calls, tt.probed)
			}
		})
	}
}

func TestDisplay(t *testing.T) {
	if got := Display("https://api.example.com"); got != "api.example.com" {
		t.Errorf("Display() = %q", got)
	}
	if got := Display("http://api.example.com/x"); got != "api.example.com/x" {
		t.Errorf("Display() = %q", got)
	}
}

func TestDialProber(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())

	p := DialProber{Timeout: time.Second}
	if !p.Reachable(context.Background(), host, port) {
		t.Error("expected open listener to be reachable")
	}

	_ = ln.Close()
	if p.Reachable(context.Background(), host, port) {
		t.Error("expected closed listener to be unreachable")
	}
}
