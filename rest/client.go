// Package rest exposes a client which dispatches signed HTTP requests to the service, transparently retrying
// idempotent requests which fail due to transient conditions.
package rest

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"github.com/manta-community/manta-go/httpsig"
	"github.com/manta-community/manta-go/log"
	"github.com/manta-community/manta-go/netutil"
	"github.com/manta-community/manta-go/retry"
)

// ClientOptions encapsulates the options available when creating a new client.
type ClientOptions struct {
	// URL is the base URL of the service e.g. "https://us-east.manta.example.com".
	URL string

	// Signer signs each outbound request, required.
	Signer httpsig.Signer

	// UserAgent overrides the default 'User-Agent' header.
	UserAgent string

	// TLSConfig is the TLS configuration used by the underlying transport.
	TLSConfig *tls.Config

	// RequestTimeout is the client level timeout for a single request attempt.
	// Default is one minute.
	RequestTimeout time.Duration

	// RequestRetries is the number of times an idempotent request is retried after a transient failure.
	// Default is 3.
	RequestRetries int

	// Logger is the passed Logger struct that implements the Log method for logger the user wants to use.
	Logger log.Logger

	// ReqResLogLevel is the level at which request dispatch/receipt should be logged at.
	// Default is TRACE.
	ReqResLogLevel log.Level
}

func (c *ClientOptions) defaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultClientTimeout
	}

	if c.RequestRetries == 0 {
		c.RequestRetries = DefaultRequestRetries
	}

	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Client is a REST client which signs and dispatches requests to the service, it wraps various functionality such as
// error handling, logging as well as robust request retrying.
type Client struct {
	client         *http.Client
	url            string
	signer         httpsig.Signer
	userAgent      string
	requestRetries int
	reqResLogLevel log.Level
	logger         log.WrappedLogger
}

// NewClient creates a new client using the given options.
func NewClient(options ClientOptions) (*Client, error) {
	options.defaults()

	parsed, err := url.Parse(options.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q, expected an absolute http(s) URL", options.URL)
	}

	if options.Signer == nil {
		return nil, errors.New("a signer is required")
	}

	client := &Client{
		client: NewHTTPClient(
			options.RequestTimeout,
			netutil.NewHTTPTransport(options.TLSConfig, netutil.HTTPTimeouts{}),
		),
		url:            strings.TrimSuffix(options.URL, "/"),
		signer:         options.Signer,
		userAgent:      options.UserAgent,
		requestRetries: options.RequestRetries,
		reqResLogLevel: options.ReqResLogLevel,
		logger:         log.NewWrappedLogger(options.Logger),
	}

	return client, nil
}

// RequestRetries returns the number of times a request will be retried for known failure cases.
func (c *Client) RequestRetries() int {
	return c.requestRetries
}

// Account returns the account requests are signed on behalf of, which roots all namespace/job endpoints.
func (c *Client) Account() string {
	return c.signer.Account()
}

// Execute the given request to completion, using the provided context, reading the entire response body whilst
// honoring request level retries/timeout.
func (c *Client) Execute(ctx context.Context, request *Request) (*Response, error) {
	resp, err := c.Do(ctx, request) //nolint:bodyclose
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	defer c.CleanupResp(resp)

	response := &Response{StatusCode: resp.StatusCode, Header: resp.Header}

	response.Body, err = ReadBody(request.Method, request.Endpoint, resp.Body, resp.ContentLength)
	if err != nil {
		return response, fmt.Errorf("failed to read response body: %w", err)
	}

	return response, nil
}

// Do executes the provided request returning the raw HTTP response with its body left unread, so large responses may
// be streamed. In general users should prefer the 'Execute' function which handles closing resources.
//
// NOTE: If the returned error is nil, the response will contain a non-nil body which the caller is expected to close.
func (c *Client) Do(ctx context.Context, request *Request) (*http.Response, error) {
	retryer := c.newRetryer(request)

	resp, err := retryer.DoWithContext(
		ctx,
		func(ctx *retry.Context) (*http.Response, error) { return c.buildAndDo(ctx, request) }, //nolint:bodyclose
	)

	if err == nil && resp.StatusCode == request.ExpectedStatusCode {
		return resp, nil
	}

	// The request failed, meaning the response won't be returned to the user, ensure it's cleaned up
	defer c.CleanupResp(resp)

	// Retries exhausted, convert the error into something more informative
	if retry.IsRetriesExhausted(err) {
		return nil, &RetriesExhaustedError{retries: c.requestRetries, err: enhanceError(errors.Unwrap(err), request, resp)}
	}

	if err != nil {
		return nil, err
	}

	// The response status was unexpected but didn't qualify for a retry, surface it as a typed error
	body, _ := ReadBody(request.Method, request.Endpoint, resp.Body, resp.ContentLength)

	return nil, handleResponseError(request.Method, request.Endpoint, resp.StatusCode, body)
}

// newRetryer creates a retryer which respects the retry parameters in the given request.
//
// NOTE: The retryer counts attempts, the configured retry count is the number of retries after the initial attempt.
func (c *Client) newRetryer(request *Request) retry.Retryer[*http.Response] {
	shouldRetry := func(ctx *retry.Context, resp *http.Response, err error) bool {
		if resp != nil {
			return c.shouldRetryWithResponse(ctx, request, resp)
		}

		return c.shouldRetryWithError(ctx, request, err)
	}

	logRetry := func(ctx *retry.Context, resp *http.Response, err error) {
		msg := fmt.Sprintf("(REST) (Attempt %d) (%s) Retrying request to endpoint '%s'", ctx.Attempt(), request.Method,
			request.Endpoint)

		if err != nil {
			msg = fmt.Sprintf("%s: which failed due to error: %s", msg, err)
		} else {
			msg = fmt.Sprintf("%s: which failed with status code %d", msg, resp.StatusCode)
		}

		// We don't log at error level because we expect some requests to fail and be explicitly handled by the caller.
		c.logger.Warnf(msg)
	}

	cleanup := func(resp *http.Response) {
		c.CleanupResp(resp)
	}

	return retry.NewRetryer(retry.RetryerOptions[*http.Response]{
		MaxRetries:  c.requestRetries + 1,
		ShouldRetry: shouldRetry,
		Log:         logRetry,
		Cleanup:     cleanup,
	})
}

// buildAndDo is a convenience which prepares then performs the provided request.
func (c *Client) buildAndDo(ctx *retry.Context, request *Request) (*http.Response, error) {
	prep, err := c.prepare(ctx, request)
	if err != nil {
		// Preparation failures (including signing failures) are fatal, don't burn retries on them
		return nil, retry.NewAbortRetriesError(err)
	}

	resp, err := c.perform(ctx, prep, c.reqResLogLevel, request.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}

	return resp, nil
}

// prepare converts the request into a raw HTTP request which can be dispatched to the service, signing it with a fresh
// timestamp. Uses the same context meaning the request timeout is not reset by retries.
func (c *Client) prepare(ctx *retry.Context, request *Request) (*http.Request, error) {
	var body io.Reader

	// Rewind the body so a retry resends it from the beginning
	if request.Body != nil {
		if _, err := request.Body.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}

		body = request.Body
	}

	req, err := http.NewRequestWithContext(ctx, string(request.Method), c.url+string(request.Endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if request.Body != nil {
		req.ContentLength = request.ContentLength
	}

	// If we received one or more non-nil query parameters ensure that they will be postfixed to the request URL.
	if len(request.QueryParameters) != 0 {
		req.URL.RawQuery = request.QueryParameters.Encode()
	}

	// Using 'Set' overwrites existing values set in the header, set these values first so that the settings below
	// take precedence.
	for key, value := range request.Header {
		req.Header.Set(key, value)
	}

	// The timestamp is stamped and signed at send time, not request construction time, to minimize clock drift
	// between the client and the service.
	date := time.Now().UTC().Format(http.TimeFormat)

	sig, err := c.signer.Sign([]byte(date))
	if err != nil {
		return nil, &TransportError{
			Kind:     KindSigningFailed,
			method:   request.Method,
			endpoint: request.Endpoint,
			err:      err,
		}
	}

	req.Header.Set("Date", date)
	req.Header.Set("Authorization", httpsig.AuthorizationHeader(c.signer.Account(), c.signer.KeyID(), sig))
	req.Header.Set("User-Agent", c.userAgent)

	// Set the content type for the request body. Note that we don't default to a value e.g. it must be set for every
	// request otherwise the string zero value will be used.
	req.Header.Set("Content-Type", string(request.ContentType))

	return req, nil
}

// perform synchronously executes the provided request returning the response and any error that occurred during the
// process.
func (c *Client) perform(ctx *retry.Context, req *http.Request, level log.Level,
	timeout time.Duration,
) (*http.Response, error) {
	c.logger.Log(level, "(REST) (Attempt %d) (%s) Dispatching request to '%s'", ctx.Attempt(), req.Method, req.URL)

	client := c.client

	// We only use the custom timeout if it disables the client one, or is bigger than it.
	if timeout == NoTimeout || timeout > client.Timeout {
		client = NewHTTPClient(max(0, timeout), client.Transport)
	}

	resp, err := client.Do(req)
	if err == nil {
		c.logger.Log(level, "(REST) (Attempt %d) (%s) (%d) Received response from '%s'", ctx.Attempt(),
			req.Method, resp.StatusCode, req.URL)

		return resp, nil
	}

	c.logger.Errorf("(REST) (Attempt %d) (%s) Failed to perform request to '%s': %s", ctx.Attempt(), req.Method,
		req.URL, err)

	return nil, handleRequestError(req, err)
}

// shouldRetryWithError returns a boolean indicating whether the given error is retryable.
func (c *Client) shouldRetryWithError(ctx *retry.Context, request *Request, err error) bool {
	c.logger.Warnf("(REST) (Attempt %d) (%s) Request to endpoint '%s' failed due to error: %s", ctx.Attempt(),
		request.Method, request.Endpoint, err)

	return request.IsIdempotent() && shouldRetry(err)
}

// shouldRetryWithResponse returns a boolean indicating whether the given request is retryable.
//
// NOTE: If the response contains a 'Retry-After' header this will block for the given duration before returning true.
func (c *Client) shouldRetryWithResponse(ctx *retry.Context, request *Request, resp *http.Response) bool {
	// We've got our expected status code, don't retry
	if resp.StatusCode == request.ExpectedStatusCode {
		return false
	}

	c.logger.Warnf("(REST) (Attempt %d) (%s) Request to endpoint '%s' failed with status code %d", ctx.Attempt(),
		request.Method, request.Endpoint, resp.StatusCode)

	// Either this request can't be retried, or the user has explicitly stated that they don't want this status code
	// retried, don't retry.
	if !request.IsIdempotent() || slices.Contains(request.NoRetryOnStatusCodes, resp.StatusCode) {
		return false
	}

	retryable := netutil.IsTemporaryFailure(resp.StatusCode) ||
		slices.Contains(request.RetryOnStatusCodes, resp.StatusCode)

	if !retryable {
		return false
	}

	// If we get a 'Retry-After' in the response this will sleep for the amount of time specified in the response
	waitForRetryAfter(resp)

	return true
}

// CleanupResp drains the response body and ensures it's closed.
func (c *Client) CleanupResp(resp *http.Response) {
	if resp == nil {
		return
	}

	defer resp.Body.Close()

	_, err := io.Copy(io.Discard, resp.Body)
	if err == nil || cleanupErrorExpected(err) {
		return
	}

	c.logger.Warnf("(REST) Failed to drain response body due to unexpected error: %s", err)
}
