package rest

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/manta-community/manta-go/netutil"
)

// Method represents a HTTP method, the constants from 'net/http' may be used directly.
type Method string

// Request encapsulates the parameters/options which are required when sending a REST request.
type Request struct {
	// Method is the HTTP method used when sending the request.
	Method Method

	// Endpoint is the service endpoint the request is dispatched to, relative to the base URL.
	Endpoint Endpoint

	// ContentType indicates what type of value we are sending in the request body. Must be set for every request which
	// carries a body, otherwise the string zero value will be used.
	ContentType ContentType

	// Body is the request body, exposed as a seekable stream so large bodies aren't buffered in memory and may be
	// rewound before a retry.
	Body io.ReadSeeker

	// ContentLength is the length of the request body, required when supplying a body since it cannot be inferred from
	// a stream.
	ContentLength int64

	// Header is additional headers set on the request, the client level headers take precedence.
	Header map[string]string

	// QueryParameters are encoded and postfixed to the request URL.
	QueryParameters url.Values

	// ExpectedStatusCode is the status code which indicates the request was successful, anything else results in an
	// error being returned.
	ExpectedStatusCode int

	// Idempotent marks a request which isn't idempotent by method as safe to retry.
	Idempotent bool

	// RetryOnStatusCodes is a list of additional status codes which should be retried.
	RetryOnStatusCodes []int

	// NoRetryOnStatusCodes is a list of status codes which must not be retried, takes precedence over the defaults and
	// 'RetryOnStatusCodes'.
	NoRetryOnStatusCodes []int

	// Timeout overrides the client level timeout for this request when larger, 'NoTimeout' disables the timeout
	// altogether for requests which stream large bodies.
	Timeout time.Duration
}

// IsIdempotent returns a boolean indicating whether this request is idempotent and may be retried.
func (r *Request) IsIdempotent() bool {
	return r.Idempotent || netutil.IsMethodIdempotent(string(r.Method))
}

// Response encapsulates a materialized response from the service.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
