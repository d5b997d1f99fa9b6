package netutil

import "net/http"

// IsMethodIdempotent returns a boolean indicating whether the given method is idempotent.
//
// NOTE: POST requests are never idempotent, a blind retry could duplicate server-side effects; callers which know
// better must opt-in explicitly.
func IsMethodIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
