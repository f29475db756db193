package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrNotFound is returned when the platform reports that the requested
// resource (workspace, environment, service, secret) does not exist.
var ErrNotFound = errors.New("resource not found")

// APIError carries the structured error body the platform attaches to
// failed requests. Failures are never retried locally; callers are expected
// to surface the message and diagnose against the platform's logs.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform returned status %d (%v): %v", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("platform returned status %d: %v", e.Status, e.Message)
}

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	var aerr *APIError
	if errors.As(err, &aerr) {
		return aerr.Status
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}
