package stor

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/manta-community/manta-go/rest"
)

// Service error codes the client branches on, the service defines many more which are surfaced verbatim via
// 'rest.ServiceError'.
const (
	CodeResourceNotFound      = "ResourceNotFound"
	CodeDirectoryDoesNotExist = "DirectoryDoesNotExist"
	CodeDirectoryNotEmpty     = "DirectoryNotEmpty"
	CodeLinkNotFound          = "SourceObjectNotFound"
	CodePreconditionFailed    = "PreconditionFailed"
)

// NotFoundError is returned when the path being operated on does not exist; metadata requests carry no error body so
// the service error code is unavailable.
type NotFoundError struct {
	Path string
}

func (n *NotFoundError) Error() string {
	return fmt.Sprintf("no such object or directory %q", n.Path)
}

// IsNotFoundError returns a boolean indicating whether the given error means the path being operated on does not
// exist.
func IsNotFoundError(err error) bool {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return true
	}

	serviceError, ok := rest.IsServiceError(err)

	return ok && serviceError.Status == http.StatusNotFound
}
