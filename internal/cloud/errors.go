package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorResponse is the error body returned by the API and the auth server.
type ErrorResponse struct {
	Code             int    `json:"code"`
	Description      string `json:"description"`
	ErrorType        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// APIError is a non-2xx response from the target.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Response   *ErrorResponse
}

// Error implements the error interface
func (e *APIError) Error() string {
	if d := e.Description(); d != "" {
		return fmt.Sprintf("%s %s (%d): %s", e.Method, e.URL, e.StatusCode, d)
	}
	return fmt.Sprintf("%s %s (%d)", e.Method, e.URL, e.StatusCode)
}

// Description is the remote-provided explanation, if any.
func (e *APIError) Description() string {
	if e.Response == nil {
		return ""
	}
	if e.Response.Description != "" {
		return e.Response.Description
	}
	if e.Response.ErrorDescription != "" {
		return e.Response.ErrorDescription
	}
	return e.Response.ErrorType
}

// Denied reports whether the target rejected the credentials or the operation.
func (e *APIError) Denied() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsDenied reports whether err is an authorization denial from the target.
func IsDenied(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Denied()
}

// DenialDescription returns the remote description carried by a denial.
func DenialDescription(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if d := apiErr.Description(); d != "" {
			return d
		}
		return http.StatusText(apiErr.StatusCode)
	}
	return err.Error()
}

func newAPIError(req *http.Request, statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Method:     req.Method,
		URL:        req.URL.Redacted(),
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil {
			apiErr.Response = &errResp
		}
	}
	return apiErr
}
