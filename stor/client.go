package stor

import (
	"context"
	"io"

	"github.com/manta-community/manta-go/rest"
)

// GetObjectOptions encapsulates the options available when using the 'GetObject' function.
type GetObjectOptions struct {
	// Path is the namespace path of the object being operated on.
	Path string

	// ByteRange allows specifying a start/end offset to be operated on.
	ByteRange *ByteRange
}

// GetObjectAttrsOptions encapsulates the options available when using the 'GetObjectAttrs' function.
type GetObjectAttrsOptions struct {
	// Path is the namespace path of the object being operated on.
	Path string
}

// PutObjectOptions encapsulates the options available when using the 'PutObject' function.
type PutObjectOptions struct {
	// Path is the namespace path of the object being operated on.
	Path string

	// Body is the data that will be uploaded.
	//
	// NOTE: Required to be a 'ReadSeeker' to support digest calculation and body rewind before a retry.
	Body io.ReadSeeker

	// ContentLength is the length of the body in bytes, required since it cannot be inferred from a stream.
	ContentLength int64

	// ContentType is the media type to store the object with.
	// Default is 'application/octet-stream'.
	ContentType rest.ContentType

	// DurabilityLevel tells the service the number of copies to keep, zero uses the service default.
	DurabilityLevel int

	// IfMatch makes the put conditional, it only succeeds if the entity tag of the existing object matches.
	IfMatch string
}

// DeleteObjectOptions encapsulates the options available when using the 'DeleteObject' function.
type DeleteObjectOptions struct {
	// Path is the namespace path of the object being operated on.
	Path string
}

// PutDirectoryOptions encapsulates the options available when using the 'PutDirectory' function.
type PutDirectoryOptions struct {
	// Path is the namespace path of the directory being created.
	Path string
}

// DeleteDirectoryOptions encapsulates the options available when using the 'DeleteDirectory' function.
type DeleteDirectoryOptions struct {
	// Path is the namespace path of the directory being removed, must be empty.
	Path string
}

// PutSnapLinkOptions encapsulates the options available when using the 'PutSnapLink' function.
type PutSnapLinkOptions struct {
	// SourcePath is the namespace path of the existing object being referenced.
	SourcePath string

	// LinkPath is the namespace path the link is created at.
	LinkPath string
}

// ListDirectoryOptions encapsulates the options available when using the 'ListDirectory' function.
type ListDirectoryOptions struct {
	// Path is the namespace path of the directory being listed.
	Path string

	// Limit caps the number of entries returned, the service default (and maximum) is 1000.
	Limit int

	// Marker is the entry name to start the listing at, used for pagination.
	//
	// NOTE: The service includes the marker entry itself in the response.
	Marker string
}

// IterateFunc is the function used when iterating directory entries, called once per entry in service order. Returning
// an error stops iteration and surfaces the error to the caller.
type IterateFunc func(entry *DirEntry) error

// IterateDirectoryOptions encapsulates the options available when using the 'IterateDirectory' function.
type IterateDirectoryOptions struct {
	// Path is the namespace path of the directory being iterated.
	Path string

	// PageLimit caps the number of entries fetched per underlying listing request.
	PageLimit int

	// Func is executed for each entry listed.
	Func IterateFunc
}

// Client is a unified interface for accessing/managing entries in the hierarchical object namespace.
type Client interface {
	// PutObject creates or overwrites an object, streaming the body, returning the service-computed attributes.
	PutObject(ctx context.Context, opts PutObjectOptions) (*ObjectAttrs, error)

	// GetObject retrieves an object, note the body must be drained and closed to release the underlying connection.
	GetObject(ctx context.Context, opts GetObjectOptions) (*Object, error)

	// GetObjectAttrs retrieves an objects attributes without its content.
	GetObjectAttrs(ctx context.Context, opts GetObjectAttrsOptions) (*ObjectAttrs, error)

	// DeleteObject removes an object.
	DeleteObject(ctx context.Context, opts DeleteObjectOptions) error

	// PutDirectory creates a directory, creating one which already exists is not an error.
	PutDirectory(ctx context.Context, opts PutDirectoryOptions) error

	// DeleteDirectory removes an empty directory.
	DeleteDirectory(ctx context.Context, opts DeleteDirectoryOptions) error

	// PutSnapLink creates a zero-copy reference to an existing objects content.
	PutSnapLink(ctx context.Context, opts PutSnapLinkOptions) error

	// ListDirectory fetches a single page of a directory listing.
	ListDirectory(ctx context.Context, opts ListDirectoryOptions) (*DirectoryListing, error)

	// IterateDirectory lazily iterates all entries of a directory, transparently following pagination.
	IterateDirectory(ctx context.Context, opts IterateDirectoryOptions) error
}
