// Package crash writes the report left behind by an unexpected failure.
package crash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const moduleCacheMarker = "/pkg/mod/"

// moduleRoot is the source root of this module as the compiler recorded it.
var moduleRoot = func() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	dir := filepath.ToSlash(filepath.Dir(file))
	return strings.TrimSuffix(dir, "internal/crash")
}()

// Report is one crash.
type Report struct {
	Time   time.Time
	Err    error
	Frames []string
}

// New captures the current stack, skipping skip frames above the caller.
func New(err error, skip int) Report {
	return Report{Time: time.Now(), Err: err, Frames: Stack(skip + 1)}
}

// Stack returns the caller's stack with paths shortened.
func Stack(skip int) []string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d in %s", shorten(f.File), f.Line, f.Function))
		if !more {
			break
		}
	}
	return out
}

// shorten trims module cache paths after the cache marker and this
// module's paths to be relative to its root.
func shorten(file string) string {
	file = filepath.ToSlash(file)
	if i := strings.Index(file, moduleCacheMarker); i >= 0 {
		return file[i+len(moduleCacheMarker):]
	}
	if moduleRoot != "" && strings.HasPrefix(file, moduleRoot) {
		return strings.TrimPrefix(file, moduleRoot)
	}
	return file
}

// WriteTo renders the report.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("Time of crash:\n")
	fmt.Fprintf(&b, "  %s\n\n", r.Time.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "%s: %v\n\n", Kind(r.Err), r.Err)
	for _, f := range r.Frames {
		fmt.Fprintf(&b, "%s\n", f)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Kind names the type of the innermost error in err's chain, skipping
// the wrappers added by fmt.Errorf along the way.
func Kind(err error) string {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return fmt.Sprintf("%T", err)
		}
		err = inner
	}
}

// Save replaces the crash file at path with the report.
func (r Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := r.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
