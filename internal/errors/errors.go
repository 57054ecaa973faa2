package errors

import (
	"errors"
	"fmt"
)

// UserError represents an error caused by user input or local state the user can fix.
// Suggestion can provide a concrete fix for the user.
type UserError struct {
	Message    string
	Suggestion string
	Err        error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a UserError with a message and optional suggestion.
func NewUserError(message, suggestion string) *UserError {
	return &UserError{Message: message, Suggestion: suggestion}
}

// WrapUserError wraps an underlying error with a user-facing message and suggestion.
func WrapUserError(err error, message, suggestion string) *UserError {
	return &UserError{Message: message, Suggestion: suggestion, Err: err}
}

// PreconditionError is a UserError raised before a command runs: no target,
// not logged in, or no organization/space selected.
type PreconditionError struct {
	UserError
}

// AuthError represents an authorization denial from the remote API or a login
// that never succeeded.
type AuthError struct {
	Reason      string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Denied wraps a remote denial for display as "Denied: <description>".
func Denied(description string, err error) *AuthError {
	return &AuthError{Reason: "Denied", Description: description, Err: err}
}

func precondition(message, suggestion string) *PreconditionError {
	return &PreconditionError{UserError{Message: message, Suggestion: suggestion}}
}

// Named precondition and selection failures.
var (
	ErrNoTarget       = precondition("no target selected", "Please select a target with 'vmc target'.")
	ErrNotLoggedIn    = precondition("not logged in", "Please log in with 'vmc login'.")
	ErrNoOrganization = precondition("no organization selected", "Please select an organization with 'vmc target --org'.")
	ErrNoSpace        = precondition("no space selected", "Please select a space with 'vmc target --space'.")

	ErrNoOrganizations = NewUserError("No organizations!", "")
	ErrNoSpaces        = NewUserError("No spaces!", "")

	ErrLoginFailed = &AuthError{Reason: "login failed"}
)

// UnknownNameError reports a name that matched none of the offered choices.
func UnknownNameError(kind, name string) *UserError {
	return NewUserError(fmt.Sprintf("Unknown %s '%s'", kind, name), "")
}

// AmbiguousChoiceError reports that a selection needs a prompt but prompting is disabled.
func AmbiguousChoiceError(kind, flag string) *UserError {
	return NewUserError(
		fmt.Sprintf("more than one %s available", kind),
		fmt.Sprintf("Pass --%s to choose one.", flag),
	)
}

// Type checkers
func IsAuthError(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

func IsUserError(err error) bool {
	var e *UserError
	if errors.As(err, &e) {
		return true
	}
	return IsPreconditionError(err)
}

func IsPreconditionError(err error) bool {
	var e *PreconditionError
	return errors.As(err, &e)
}

// UserSuggestion returns a suggestion string if err is a UserError or PreconditionError.
func UserSuggestion(err error) string {
	var pe *PreconditionError
	if errors.As(err, &pe) {
		return pe.Suggestion
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Suggestion
	}
	return ""
}
