package crash

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestShorten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"module cache", "/home/dev/go/pkg/mod/github.com/spf13/cobra@v1.10.2/command.go", "github.com/spf13/cobra@v1.10.2/command.go"},
		{"this module", moduleRoot + "internal/cmd/login.go", "internal/cmd/login.go"},
		{"other path", "/usr/local/go/src/runtime/panic.go", "/usr/local/go/src/runtime/panic.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shorten(tt.in); got != tt.want {
				t.Errorf("shorten(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStack_IncludesCaller(t *testing.T) {
	frames := Stack(0)
	if len(frames) == 0 {
		t.Fatal("expected frames")
	}
	if !strings.Contains(frames[0], "TestStack_IncludesCaller") {
		t.Errorf("first frame = %q, want the test function", frames[0])
	}
	if !strings.HasPrefix(frames[0], "internal/crash/crash_test.go:") {
		t.Errorf("first frame should be module-relative, got %q", frames[0])
	}
}

func TestReport_WriteTo(t *testing.T) {
	r := Report{
		Time:   time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Err:    errors.New("boom"),
		Frames: []string{"internal/cmd/root.go:10 in main.run", "internal/cmd/root.go:20 in main.main"},
	}

	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := "Time of crash:\n" +
		"  Mon, 19 Oct 2026 12:00:00 +0000\n\n" +
		"*errors.errorString: boom\n\n" +
		"internal/cmd/root.go:10 in main.run\n" +
		"internal/cmd/root.go:20 in main.main\n"
	if buf.String() != want {
		t.Errorf("report =\n%s\nwant\n%s", buf.String(), want)
	}
}

type codedError struct{ code int }

func (e *codedError) Error() string { return fmt.Sprintf("code %d", e.code) }

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "*errors.errorString"},
		{"wrapped once", fmt.Errorf("load: %w", &codedError{code: 7}), "*crash.codedError"},
		{"wrapped twice", fmt.Errorf("run: %w", fmt.Errorf("load: %w", &codedError{code: 7})), "*crash.codedError"},
		{"not wrapping", fmt.Errorf("load: %v", &codedError{code: 7}), "*errors.errorString"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReport_WriteToWrappedError(t *testing.T) {
	r := Report{Err: fmt.Errorf("load: %w", &codedError{code: 7})}
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if !strings.Contains(buf.String(), "*crash.codedError: load: code 7\n") {
		t.Errorf("report does not name the inner error:\n%s", buf.String())
	}
}

func TestReport_SaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".vmc", "crash")

	first := New(errors.New("first"), 0)
	if err := first.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second := New(&PanicError{Value: "index out of range"}, 0)
	if err := second.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "first") {
		t.Error("old report should be replaced")
	}
	if !strings.Contains(content, "*crash.PanicError: panic: index out of range") {
		t.Errorf("unexpected report:\n%s", content)
	}
}
