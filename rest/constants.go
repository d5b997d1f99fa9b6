package rest

import (
	"time"
)

// ContentType represents a value for the 'Content-Type' HTTP header.
type ContentType string

const (
	// ContentTypeJSON JSON encoded data.
	ContentTypeJSON ContentType = "application/json"

	// ContentTypeOctetStream raw binary data.
	ContentTypeOctetStream ContentType = "application/octet-stream"

	// ContentTypeJSONStream line delimited JSON, used by the service for directory listings and report endpoints.
	ContentTypeJSONStream ContentType = "application/x-json-stream"

	// ContentTypePlainText newline delimited text, used by the service for job input streams.
	ContentTypePlainText ContentType = "text/plain"
)

const (
	// DefaultClientTimeout is the timeout for client connection/single operations i.e. this doesn't include retries.
	DefaultClientTimeout = time.Minute

	// DefaultRequestRetries is the number of times to retry a request for known failure scenarios. When sending a new
	// request the overall request timeout is not reset, however, the connection/client level timeout is.
	DefaultRequestRetries = 3

	// DefaultUserAgent is the 'User-Agent' sent with requests unless overridden via the client options.
	DefaultUserAgent = "manta-go/1.0.0"

	// NoTimeout may be supplied as a request level timeout for requests which stream large bodies and therefore must
	// not be subject to the client level timeout.
	NoTimeout = time.Duration(-1)

	// maxRetryAfter truncates the value accepted from a 'Retry-After' header.
	maxRetryAfter = time.Minute
)
