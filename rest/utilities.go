package rest

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/manta-community/manta-go/netutil"
)

// ServiceErrorCodeDecode is the code used when the service returned an error body which couldn't be decoded, the raw
// body is surfaced via the message.
const ServiceErrorCodeDecode = "decodeError"

// NewHTTPClient returns a new HTTP client with the given timeout/transport.
//
// NOTE: This is used to ensure that all uses of a HTTP client use the same configuration.
func NewHTTPClient(timeout time.Duration, transport http.RoundTripper) *http.Client {
	return &http.Client{Timeout: timeout, Transport: transport}
}

// ReadBody returns the entire response body returning an informative error in the case where the response body is less
// than the expected length.
func ReadBody(method Method, endpoint Endpoint, reader io.Reader, contentLength int64) ([]byte, error) {
	body, err := io.ReadAll(bufio.NewReader(reader))
	if err == nil {
		return body, nil
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &UnexpectedEndOfBodyError{
			method:   method,
			endpoint: endpoint,
			expected: contentLength,
			got:      len(body),
		}
	}

	return nil, err
}

// enhanceError returns a more informative error using information from the given request/response.
func enhanceError(err error, request *Request, resp *http.Response) error {
	if err != nil || resp == nil {
		return err
	}

	// Attempt to read the response body, this will help improve the returned error message
	defer resp.Body.Close()
	body, _ := ReadBody(request.Method, request.Endpoint, resp.Body, resp.ContentLength)

	return handleResponseError(request.Method, request.Endpoint, resp.StatusCode, body)
}

// handleRequestError converts a failed request error (hard failure as returned by the standard library) into a more
// useful/user friendly error.
func handleRequestError(req *http.Request, err error) error {
	// If we receive an EOF error, wrap it with a useful error message containing the method/endpoint
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &SocketClosedInFlightError{method: req.Method, endpoint: req.URL.Path}
	}

	kind := KindNetwork
	if netutil.IsTimeoutError(err) {
		kind = KindTimeout
	}

	return &TransportError{Kind: kind, method: Method(req.Method), endpoint: Endpoint(req.URL.Path), err: err}
}

// handleResponseError converts a failed request (soft failure i.e. the request itself was successful) into a more
// useful/user friendly error.
func handleResponseError(method Method, endpoint Endpoint, statusCode int, body []byte) error {
	switch {
	case statusCode >= http.StatusInternalServerError:
		var err error
		if len(body) != 0 {
			err = errors.New(string(body))
		}

		return &TransportError{Kind: KindServerError, Status: statusCode, method: method, endpoint: endpoint, err: err}
	case statusCode >= http.StatusBadRequest:
		return decodeServiceError(method, endpoint, statusCode, body)
	}

	return &UnexpectedStatusCodeError{Status: statusCode, method: method, endpoint: endpoint, Body: body}
}

// decodeServiceError decodes the services JSON error body, unrecognized shapes are surfaced with the 'decodeError'
// code rather than being silently coerced.
func decodeServiceError(method Method, endpoint Endpoint, statusCode int, body []byte) *ServiceError {
	type overlay struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	var data overlay

	err := json.Unmarshal(body, &data)
	if err != nil || data.Code == "" {
		return &ServiceError{
			Status:   statusCode,
			Code:     ServiceErrorCodeDecode,
			Message:  string(body),
			method:   method,
			endpoint: endpoint,
		}
	}

	return &ServiceError{
		Status:   statusCode,
		Code:     data.Code,
		Message:  data.Message,
		method:   method,
		endpoint: endpoint,
	}
}

// shouldRetry returns a boolean indicating whether the request which returned the given error should be retried.
func shouldRetry(err error) bool {
	var socketClosed *SocketClosedInFlightError

	return netutil.IsTemporaryError(err) || netutil.IsTimeoutError(err) || errors.As(err, &socketClosed)
}

// waitForRetryAfter sleeps until we can retry the request for the given response.
//
// NOTE: Truncates the value from the 'Retry-After' header to a maximum of 60s.
func waitForRetryAfter(resp *http.Response) {
	if resp.StatusCode != http.StatusServiceUnavailable && resp.StatusCode != http.StatusTooManyRequests {
		return
	}

	after := resp.Header.Get("Retry-After")
	if after == "" {
		return
	}

	duration := retryAfterDuration(after)
	if duration <= 0 {
		return
	}

	time.Sleep(min(duration, maxRetryAfter))
}

// retryAfterDuration returns the duration to wait until we've satisfied the given 'Retry-After' header.
func retryAfterDuration(after string) time.Duration {
	seconds, err := strconv.Atoi(after)
	if err == nil {
		return time.Duration(seconds) * time.Second
	}

	date, err := time.Parse(time.RFC1123, after)
	if err == nil {
		return time.Until(date.UTC())
	}

	return 0
}

// cleanupErrorExpected returns a boolean indicating whether the given error is expected when draining a response body.
func cleanupErrorExpected(err error) bool {
	return errors.Is(err, http.ErrBodyReadAfterClose) || strings.Contains(err.Error(),
		"http: read on closed response body")
}
