package inference

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an inference failure by what the caller can do about it.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidRequest
	ServiceUnavailable
	ModelNotFound
	Timeout
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid_request"
	case ServiceUnavailable:
		return "service_unavailable"
	case ModelNotFound:
		return "model_not_found"
	case Timeout:
		return "timeout"
	case TransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Error is the only error type Orchestrator.Run returns.
type Error struct {
	Kind   Kind
	Model  string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidRequest:
		return "invalid request: " + e.Detail
	case ServiceUnavailable:
		return fmt.Sprintf("inference daemon not running at %s (start it with `ollama serve`)", e.Detail)
	case ModelNotFound:
		return fmt.Sprintf("model %q not found (pull it first with `ollama pull %s`)", e.Model, e.Model)
	case Timeout:
		if e.Detail == "" {
			// the caller gave up; no deadline of ours elapsed
			if e.Err != nil {
				return "cancelled before completion: " + e.Err.Error()
			}
			return "cancelled before completion"
		}
		return fmt.Sprintf("timed out after %s (retry with a shorter prompt or a smaller model)", e.Detail)
	case TransportFailure:
		if e.Err != nil {
			return "unexpected transport failure: " + e.Err.Error()
		}
		return "unexpected transport failure: " + e.Detail
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Detail
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the kind to the HTTP status the API answers with.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case InvalidRequest:
		return http.StatusBadRequest
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	case ModelNotFound:
		return http.StatusNotFound
	case Timeout:
		return http.StatusGatewayTimeout
	case TransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func invalid(model, detail string) error {
	return &Error{Kind: InvalidRequest, Model: model, Detail: detail}
}

func unavailable(model, addr string, err error) error {
	return &Error{Kind: ServiceUnavailable, Model: model, Detail: addr, Err: err}
}

func notFound(model string, err error) error {
	return &Error{Kind: ModelNotFound, Model: model, Err: err}
}

func timedOut(model, after string, err error) error {
	return &Error{Kind: Timeout, Model: model, Detail: after, Err: err}
}

// cancelled reports a run abandoned because the caller's context ended.
func cancelled(model string, cause error) error {
	return &Error{Kind: Timeout, Model: model, Err: cause}
}

func transportFailure(model string, err error) error {
	return &Error{Kind: TransportFailure, Model: model, Err: err}
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsInvalidRequest(err error) bool     { return KindOf(err) == InvalidRequest }
func IsServiceUnavailable(err error) bool { return KindOf(err) == ServiceUnavailable }
func IsModelNotFound(err error) bool      { return KindOf(err) == ModelNotFound }
func IsTimeout(err error) bool            { return KindOf(err) == Timeout }
func IsTransportFailure(err error) bool   { return KindOf(err) == TransportFailure }
