package rest

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint represents a single REST endpoint.
//
// NOTE: Endpoints should not include query parameters, they may be supplied as raw 'url.Values' via the 'Request' data
// structure and will be encoded and postfixed to the request URL accordingly.
type Endpoint string

// Format returns a new endpoint using 'fmt.Sprintf' to fill in any missing/required elements of the endpoint using the
// given arguments. All arguments will automatically be path escaped before being inserted into the endpoint.
//
// NOTE: No validation takes place to ensure the correct number of arguments are supplied, that's down to you...
func (e Endpoint) Format(args ...string) Endpoint {
	escaped := make([]any, len(args))
	for index, arg := range args {
		escaped[index] = url.PathEscape(arg)
	}

	return Endpoint(fmt.Sprintf(string(e), escaped...))
}

// EndpointFromPath returns an endpoint addressing the given namespace path, path escaping each segment whilst
// preserving the hierarchy separators.
func EndpointFromPath(path string) Endpoint {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}

	return Endpoint("/" + strings.Join(escaped, "/"))
}
