// Package stor exposes a client for managing the hierarchical object namespace; objects, directories and snaplinks.
package stor

import (
	"io"
	"time"
)

// EntryType is the kind tag attached to each entry in the namespace.
type EntryType string

const (
	// EntryTypeObject a plain object carrying content.
	EntryTypeObject EntryType = "object"

	// EntryTypeDirectory a directory which may contain further entries.
	EntryTypeDirectory EntryType = "directory"

	// EntryTypeLink a snaplink, a zero-copy reference to existing object content.
	EntryTypeLink EntryType = "link"
)

// valid returns a boolean indicating whether the type tag is one the client understands.
func (e EntryType) valid() bool {
	return e == EntryTypeObject || e == EntryTypeDirectory || e == EntryTypeLink
}

// DirEntry is a single entry in a directory listing, decoded from the services line delimited JSON format.
type DirEntry struct {
	Name  string    `json:"name"`
	Type  EntryType `json:"type"`
	ETag  string    `json:"etag,omitempty"`
	Size  int64     `json:"size,omitempty"`
	MTime time.Time `json:"mtime"`
}

// IsDir returns a boolean indicating whether the entry is a directory.
func (d *DirEntry) IsDir() bool {
	return d.Type == EntryTypeDirectory
}

// ObjectAttrs represents the attributes attached to an object in the namespace, populated from response headers; the
// zero value is used for attributes the service didn't supply.
type ObjectAttrs struct {
	// Path is the full namespace path of the object.
	Path string

	// ETag is the entity tag for the object.
	ETag string

	// Size is the content length of the object in bytes.
	Size int64

	// ContentType is the media type the object was stored with.
	ContentType string

	// ContentMD5 is the base64 encoded MD5 digest of the content, as computed by the service.
	ContentMD5 string

	// Durability is the number of copies the service keeps.
	Durability int

	// LastModified is the time the object was last updated (or created).
	LastModified time.Time
}

// Object represents an object in the namespace, the attributes and its body.
type Object struct {
	ObjectAttrs

	// Body is a lazily consumed stream over the object content, it should be read once, and closed to avoid resource
	// leaks.
	Body io.ReadCloser
}

// DirectoryListing is a single page of a directory listing.
type DirectoryListing struct {
	// Entries in the order the service returned them.
	Entries []*DirEntry

	// ResultSetSize is the total number of entries in the directory, not just this page.
	ResultSetSize int
}

// ByteRange represents a start/end offset of an object to operate on.
type ByteRange struct {
	Start int64
	End   int64
}
