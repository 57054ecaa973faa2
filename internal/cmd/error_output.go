package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vmc-cli/vmc/internal/cloud"
	"github.com/vmc-cli/vmc/internal/crash"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
)

func (a *App) printCommandError(err error) {
	if err == nil {
		return
	}
	w := a.Stderr

	switch {
	case errors.Is(err, context.Canceled):
		return
	case clierrors.IsAuthError(err):
		_, _ = fmt.Fprintln(w, err)
	case cloud.IsDenied(err):
		_, _ = fmt.Fprintf(w, "Denied: %s\n", cloud.DenialDescription(err))
	case clierrors.IsUserError(err):
		_, _ = fmt.Fprintln(w, err)
		if suggestion := clierrors.UserSuggestion(err); suggestion != "" {
			_, _ = fmt.Fprintf(w, "Hint: %s\n", suggestion)
		}
	default:
		a.reportCrash(crash.New(err, 1))
	}
}

// reportCrash saves r to the crash file and tells the user where it is.
func (a *App) reportCrash(r crash.Report) {
	path := "the crash file"
	if store, err := a.store(); err == nil {
		path = store.CrashFile()
		if err := r.Save(path); err != nil {
			slog.Debug("failed to write crash report", "path", path, "error", err)
		}
	}
	_, _ = fmt.Fprintf(a.Stderr, "%s: %v\n", crash.Kind(r.Err), r.Err)
	_, _ = fmt.Fprintf(a.Stderr, "For more information, see %s\n", path)
}
