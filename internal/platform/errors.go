package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies adapter failures for the orchestrator's accounting.
type ErrorKind string

const (
	// ErrAuth marks missing or rejected credentials; the platform is skipped.
	ErrAuth ErrorKind = "auth"
	// ErrTransient marks timeouts, rate limits, and 5xx responses; retried next run.
	ErrTransient ErrorKind = "transient"
	// ErrPlatform marks provider rejections other than auth (4xx).
	ErrPlatform ErrorKind = "platform"
	// ErrValidation marks a malformed individual item; the item is skipped.
	ErrValidation ErrorKind = "validation"
	// ErrConfig marks local misconfiguration that aborts a platform's run.
	ErrConfig ErrorKind = "config"
)

// ErrSkipped is returned by the persist pipeline when a record with the same
// (platform, external id) is already stored. It is a no-op outcome, not a failure.
var ErrSkipped = errors.New("record already ingested")

// Error is a classified adapter failure.
type Error struct {
	Kind ErrorKind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// NewError builds a classified error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error with a message.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the classification of err. Timeouts and cancellations count
// as transient; unclassified errors default to platform.
func KindOf(err error) ErrorKind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTransient
	}
	return ErrPlatform
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// ClassifyStatus maps an HTTP response status to an error kind.
// 401/403 are auth failures, 429 and 5xx are transient, other 4xx are platform errors.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusTooManyRequests || status >= 500:
		return ErrTransient
	default:
		return ErrPlatform
	}
}
