// Package target turns a user-supplied host into the canonical endpoint URL.
package target

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"
)

const (
	httpsPort    = "443"
	probeTimeout = 5 * time.Second
)

// Prober reports whether host accepts TCP connections on port.
type Prober interface {
	Reachable(ctx context.Context, host, port string) bool
}

// DialProber probes with a plain TCP dial.
type DialProber struct {
	Timeout time.Duration
}

// Reachable implements Prober.
func (p DialProber) Reachable(ctx context.Context, host, port string) bool {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = probeTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		slog.Debug("https probe failed", "host", host, "error", err)
		return false
	}
	_ = conn.Close()
	return true
}

// Normalize adds a scheme when missing (https if the host answers on 443,
// http otherwise) and trims one trailing slash.
func Normalize(ctx context.Context, raw string, prober Prober) string {
	url := strings.TrimSpace(raw)

	if !hasScheme(url) {
		if prober == nil {
			prober = DialProber{}
		}
		if prober.Reachable(ctx, hostOf(url), httpsPort) {
			url = "https://" + url
		} else {
			url = "http://" + url
		}
	}

	return strings.TrimSuffix(url, "/")
}

// Display strips the scheme for progress messages.
func Display(url string) string {
	url = strings.TrimPrefix(url, "https://")
	return strings.TrimPrefix(url, "http://")
}

func hasScheme(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// hostOf drops any path and port from a scheme-less address.
func hostOf(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		addr = addr[:i]
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
