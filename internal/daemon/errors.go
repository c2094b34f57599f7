package daemon

import (
	"errors"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// modelNotFoundError signals the daemon does not know the requested model.
type modelNotFoundError struct {
	model  string
	detail string
}

func (e modelNotFoundError) Error() string {
	if e.detail != "" {
		return "model not found: " + e.model + ": " + e.detail
	}
	return "model not found: " + e.model
}

// ErrModelNotFound constructs a model-not-found error for model.
func ErrModelNotFound(model, detail string) error {
	return modelNotFoundError{model: model, detail: detail}
}

// IsModelNotFound reports whether err indicates the daemon lacks the model.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// unavailableError signals the daemon could not be reached.
type unavailableError struct {
	addr string
	err  error
}

func (e unavailableError) Error() string {
	return "daemon unreachable at " + e.addr + ": " + e.err.Error()
}

func (e unavailableError) Unwrap() error { return e.err }

// ErrUnavailable wraps a connectivity failure against addr.
func ErrUnavailable(addr string, err error) error { return unavailableError{addr: addr, err: err} }

// IsUnavailable reports whether err is a connectivity failure (refused, reset, read timeout).
func IsUnavailable(err error) bool {
	var e unavailableError
	return errors.As(err, &e)
}

// decodeError signals a malformed response or stream from the daemon.
type decodeError struct {
	what string
	err  error
}

func (e decodeError) Error() string {
	if e.err == nil {
		return "decode " + e.what
	}
	return "decode " + e.what + ": " + e.err.Error()
}

func (e decodeError) Unwrap() error { return e.err }

// IsDecode reports whether err is a protocol/decode failure.
func IsDecode(err error) bool {
	var e decodeError
	return errors.As(err, &e)
}

// StatusError is a non-2xx answer that is neither a missing model nor a decode failure.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return "daemon http error: " + e.Status + ": " + e.Message
	}
	return "daemon http error: " + e.Status
}

// isConnectivity reports whether a transport error means the daemon is not reachable.
// Callers must rule out their own context cancellation first.
func isConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host")
}

// modelNotFoundText matches the daemon's "model 'x' not found" wording and
// nothing looser, so a missing file or route stays a plain status error.
var modelNotFoundText = regexp.MustCompile(`(?i)\bmodel\b[^\n]*\bnot found\b`)

func mentionsModelNotFound(msg string) bool {
	return modelNotFoundText.MatchString(msg)
}
