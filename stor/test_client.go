package stor

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/manta-community/manta-go/rest"
)

// TestEntry represents a namespace entry held by the 'TestClient'.
type TestEntry struct {
	ObjectAttrs

	Type EntryType
	Body []byte
}

// TestClient implementation of the 'Client' interface which stores state in memory, and can be used to avoid having to
// manually mock a client during unit testing. It enforces the same parent directory semantics as the service.
type TestClient struct {
	t    *testing.T
	lock sync.RWMutex

	// Entries is the in memory state maintained by the client, keyed by full namespace path. It should only be used to
	// inspect state (to perform assertions) once testing is complete.
	Entries map[string]*TestEntry
}

var _ Client = (*TestClient)(nil)

// NewTestClient returns a new test client with an empty namespace.
func NewTestClient(t *testing.T) *TestClient {
	return &TestClient{t: t, Entries: make(map[string]*TestEntry)}
}

func (t *TestClient) PutObject(_ context.Context, opts PutObjectOptions) (*ObjectAttrs, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if err := t.parentExistsLocked(opts.Path); err != nil {
		return nil, err
	}

	if opts.IfMatch != "" {
		existing, ok := t.Entries[opts.Path]
		if !ok || existing.ETag != opts.IfMatch {
			return nil, rest.NewServiceError(http.StatusPreconditionFailed, CodePreconditionFailed, opts.Path)
		}
	}

	body, err := io.ReadAll(opts.Body)
	if err != nil {
		return nil, err
	}

	digest := md5.Sum(body)

	entry := &TestEntry{
		ObjectAttrs: ObjectAttrs{
			Path:         opts.Path,
			ETag:         uuid.NewString(),
			Size:         int64(len(body)),
			ContentType:  string(opts.ContentType),
			ContentMD5:   base64.StdEncoding.EncodeToString(digest[:]),
			Durability:   opts.DurabilityLevel,
			LastModified: time.Now().UTC(),
		},
		Type: EntryTypeObject,
		Body: body,
	}

	t.Entries[opts.Path] = entry

	attrs := entry.ObjectAttrs

	return &attrs, nil
}

func (t *TestClient) GetObject(_ context.Context, opts GetObjectOptions) (*Object, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	entry, err := t.getObjectLocked(opts.Path)
	if err != nil {
		return nil, err
	}

	var offset, length int64 = 0, int64(len(entry.Body))
	if opts.ByteRange != nil {
		offset, length = opts.ByteRange.Start, opts.ByteRange.End-opts.ByteRange.Start+1
	}

	return &Object{
		ObjectAttrs: entry.ObjectAttrs,
		Body:        io.NopCloser(io.NewSectionReader(bytes.NewReader(entry.Body), offset, length)),
	}, nil
}

func (t *TestClient) GetObjectAttrs(_ context.Context, opts GetObjectAttrsOptions) (*ObjectAttrs, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	entry, ok := t.Entries[opts.Path]
	if !ok {
		return nil, &NotFoundError{Path: opts.Path}
	}

	attrs := entry.ObjectAttrs

	return &attrs, nil
}

func (t *TestClient) DeleteObject(_ context.Context, opts DeleteObjectOptions) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, err := t.getObjectLocked(opts.Path); err != nil {
		return err
	}

	delete(t.Entries, opts.Path)

	return nil
}

func (t *TestClient) PutDirectory(_ context.Context, opts PutDirectoryOptions) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if err := t.parentExistsLocked(opts.Path); err != nil {
		return err
	}

	// Creating a directory which already exists is not an error
	if _, ok := t.Entries[opts.Path]; ok {
		return nil
	}

	t.Entries[opts.Path] = &TestEntry{
		ObjectAttrs: ObjectAttrs{Path: opts.Path, LastModified: time.Now().UTC()},
		Type:        EntryTypeDirectory,
	}

	return nil
}

func (t *TestClient) DeleteDirectory(_ context.Context, opts DeleteDirectoryOptions) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.Entries[opts.Path]; !ok {
		return rest.NewServiceError(http.StatusNotFound, CodeResourceNotFound, opts.Path)
	}

	if len(t.childrenLocked(opts.Path)) != 0 {
		return rest.NewServiceError(http.StatusBadRequest, CodeDirectoryNotEmpty, opts.Path)
	}

	delete(t.Entries, opts.Path)

	return nil
}

func (t *TestClient) PutSnapLink(_ context.Context, opts PutSnapLinkOptions) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	source, ok := t.Entries[opts.SourcePath]
	if !ok || source.Type != EntryTypeObject {
		return rest.NewServiceError(http.StatusNotFound, CodeLinkNotFound, opts.SourcePath)
	}

	if err := t.parentExistsLocked(opts.LinkPath); err != nil {
		return err
	}

	attrs := source.ObjectAttrs
	attrs.Path = opts.LinkPath

	t.Entries[opts.LinkPath] = &TestEntry{ObjectAttrs: attrs, Type: EntryTypeLink, Body: source.Body}

	return nil
}

func (t *TestClient) ListDirectory(_ context.Context, opts ListDirectoryOptions) (*DirectoryListing, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if !t.directoryExistsLocked(opts.Path) {
		return nil, rest.NewServiceError(http.StatusNotFound, CodeDirectoryDoesNotExist, opts.Path)
	}

	children := t.childrenLocked(opts.Path)

	listing := &DirectoryListing{ResultSetSize: len(children)}

	for _, child := range children {
		// The marker entry itself is included, mirroring service behavior
		if opts.Marker != "" && child.Name < opts.Marker {
			continue
		}

		if opts.Limit > 0 && len(listing.Entries) >= opts.Limit {
			break
		}

		listing.Entries = append(listing.Entries, child)
	}

	return listing, nil
}

func (t *TestClient) IterateDirectory(ctx context.Context, opts IterateDirectoryOptions) error {
	return iterateDirectory(ctx, t, opts)
}

// getObjectLocked returns the content bearing entry at the given path.
func (t *TestClient) getObjectLocked(p string) (*TestEntry, error) {
	entry, ok := t.Entries[p]
	if !ok || entry.Type == EntryTypeDirectory {
		return nil, rest.NewServiceError(http.StatusNotFound, CodeResourceNotFound, p)
	}

	return entry, nil
}

// childrenLocked returns the immediate children of the given directory in lexical order.
func (t *TestClient) childrenLocked(dir string) []*DirEntry {
	children := make([]*DirEntry, 0)

	for p, entry := range t.Entries {
		if path.Dir(p) != dir {
			continue
		}

		children = append(children, &DirEntry{
			Name:  path.Base(p),
			Type:  entry.Type,
			ETag:  entry.ETag,
			Size:  entry.Size,
			MTime: entry.LastModified,
		})
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })

	return children
}

// parentExistsLocked enforces the services requirement that the parent of the entry being created is an existing
// directory.
func (t *TestClient) parentExistsLocked(p string) error {
	if parent := path.Dir(p); !t.directoryExistsLocked(parent) {
		return rest.NewServiceError(http.StatusNotFound, CodeDirectoryDoesNotExist, parent)
	}

	return nil
}

// directoryExistsLocked returns a boolean indicating whether the given directory exists. The top levels of the
// namespace ('/account' and '/account/stor') always exist.
func (t *TestClient) directoryExistsLocked(p string) bool {
	if len(strings.Split(strings.TrimPrefix(p, "/"), "/")) <= 2 {
		return true
	}

	entry, ok := t.Entries[p]

	return ok && entry.Type == EntryTypeDirectory
}
