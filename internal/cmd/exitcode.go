package cmd

import (
	"context"
	"errors"

	"github.com/vmc-cli/vmc/internal/cloud"
	clierrors "github.com/vmc-cli/vmc/internal/errors"
)

const (
	ExitOK       = 0
	ExitSystem   = 1
	ExitUser     = 2
	ExitAuth     = 3
	ExitCanceled = 130
)

// ExitCode maps a command error to a stable process exit code for automation.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}
	if clierrors.IsAuthError(err) || cloud.IsDenied(err) {
		return ExitAuth
	}
	if clierrors.IsUserError(err) {
		return ExitUser
	}
	return ExitSystem
}
