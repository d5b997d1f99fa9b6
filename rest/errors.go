package rest

import (
	"errors"
	"fmt"
)

// TransportErrorKind classifies a 'TransportError'.
type TransportErrorKind string

const (
	// KindNetwork covers connection level failures e.g. a connection reset or refused.
	KindNetwork TransportErrorKind = "network"

	// KindTimeout covers request/connection timeouts.
	KindTimeout TransportErrorKind = "timeout"

	// KindServerError covers 5xx responses from the service.
	KindServerError TransportErrorKind = "serverError"

	// KindSigningFailed covers failures to sign the outbound request, these are fatal and never retried.
	KindSigningFailed TransportErrorKind = "signingFailed"
)

// TransportError is returned for transport level failures, some kinds are retried internally before being surfaced.
type TransportError struct {
	Kind TransportErrorKind

	// Status is the response status code, only populated for the 'KindServerError' kind.
	Status int

	method   Method
	endpoint Endpoint
	err      error
}

func (t *TransportError) Error() string {
	msg := fmt.Sprintf("transport failure (%s) executing '%s' request to '%s'", t.Kind, t.method, t.endpoint)

	if t.Status != 0 {
		msg += fmt.Sprintf(" status %d", t.Status)
	}

	if t.err != nil {
		msg += fmt.Sprintf(": %s", t.err)
	}

	return msg
}

func (t *TransportError) Unwrap() error {
	return t.err
}

// IsTransportError returns a boolean indicating whether the given error is a 'TransportError'.
func IsTransportError(err error) bool {
	var transportError *TransportError
	return errors.As(err, &transportError)
}

// ServiceError is returned when the service rejects a request with a 4xx status code, the code/message are decoded
// from the services JSON error body. These requests are never retried.
type ServiceError struct {
	Status  int
	Code    string
	Message string

	method   Method
	endpoint Endpoint
}

func (s *ServiceError) Error() string {
	return fmt.Sprintf("service error executing '%s' request to '%s' (%d %s): %s", s.method, s.endpoint, s.Status,
		s.Code, s.Message)
}

// IsServiceError returns the typed service error and a boolean indicating whether the given error is one.
func IsServiceError(err error) (*ServiceError, bool) {
	var serviceError *ServiceError
	return serviceError, errors.As(err, &serviceError)
}

// NewServiceError returns a service error with the given status/code/message, useful when constructing test doubles
// which mimic service behavior.
func NewServiceError(status int, code, message string) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message}
}

// NewDecodeServiceError returns the error used by higher level clients when a response body doesn't match the
// documented shape, unrecognized shapes are rejected rather than silently coerced.
func NewDecodeServiceError(method Method, endpoint Endpoint, status int, message string) *ServiceError {
	return &ServiceError{
		Status:   status,
		Code:     ServiceErrorCodeDecode,
		Message:  message,
		method:   method,
		endpoint: endpoint,
	}
}

// SocketClosedInFlightError is returned if the client socket was closed during an active request. This is usually due
// to socket being closed by the remote host in the event of a fatal error.
type SocketClosedInFlightError struct {
	method   string
	endpoint string
}

func (e *SocketClosedInFlightError) Error() string {
	return fmt.Sprintf("error executing '%s' request to '%s' socket closed in flight, check the logs for more details",
		e.method, e.endpoint)
}

// RetriesExhaustedError is returned if the request was retried the maximum number of times, unwrapping it returns the
// error from the final attempt.
type RetriesExhaustedError struct {
	retries int
	err     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("exhausted retry count after %d retries, last error: %s", e.retries, e.Unwrap())
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.err
}

// IsRetriesExhausted returns a boolean indicating whether the given error is a 'RetriesExhaustedError'.
func IsRetriesExhausted(err error) bool {
	var retriesExhausted *RetriesExhaustedError
	return errors.As(err, &retriesExhausted)
}

// UnexpectedEndOfBodyError is returned if the length of the response body does not match the expected length. This may
// happen in the event that the 'Content-Length' header value is incorrectly set.
type UnexpectedEndOfBodyError struct {
	method   Method
	endpoint Endpoint
	expected int64
	got      int
}

func (e *UnexpectedEndOfBodyError) Error() string {
	return fmt.Sprintf("unexpected EOF whilst reading response body for '%s' request to '%s', expected %d bytes but "+
		"got %d", e.method, e.endpoint, e.expected, e.got)
}

// UnexpectedStatusCodeError returned if a request was executed successfully, however, we received a response status
// code which was unexpected and doesn't fall into the service/transport error classes.
type UnexpectedStatusCodeError struct {
	Status   int
	method   Method
	endpoint Endpoint
	Body     []byte
}

func (e *UnexpectedStatusCodeError) Error() string {
	msg := fmt.Sprintf("unexpected status code %d for '%s' request to '%s'", e.Status, e.method, e.endpoint)
	if len(e.Body) == 0 {
		msg += ", check the logs for more details"
	} else {
		msg += fmt.Sprintf(", %s", e.Body)
	}

	return msg
}
