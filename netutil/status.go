package netutil

import (
	"net/http"
)

// IsTemporaryFailure returns a boolean indicating whether the provided status code represents a temporary failure and
// may be retried for idempotent requests.
//
// NOTE: All 5xx level status codes are considered temporary, the service returns them for internal errors and
// overload conditions which generally resolve; 4xx level codes are application errors and are never retried.
func IsTemporaryFailure(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}
