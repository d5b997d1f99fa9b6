package stor

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/manta-community/manta-go/rest"
)

// Content types which distinguish the kind of entry being created by a PUT.
const (
	contentTypeDirectory = rest.ContentType("application/json; type=directory")
	contentTypeSnapLink  = rest.ContentType("application/json; type=link")
)

// NSClient implements the 'Client' interface over the services REST API.
type NSClient struct {
	client *rest.Client
}

var _ Client = (*NSClient)(nil)

// NewNSClient creates a new namespace client dispatching requests via the given REST client.
func NewNSClient(client *rest.Client) *NSClient {
	return &NSClient{client: client}
}

func (c *NSClient) PutObject(ctx context.Context, opts PutObjectOptions) (*ObjectAttrs, error) {
	if opts.ContentType == "" {
		opts.ContentType = rest.ContentTypeOctetStream
	}

	digest, err := contentMD5(opts.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to compute content digest: %w", err)
	}

	header := map[string]string{"Content-MD5": digest}

	if opts.DurabilityLevel > 0 {
		header["x-durability-level"] = strconv.Itoa(opts.DurabilityLevel)
	}

	if opts.IfMatch != "" {
		header["If-Match"] = opts.IfMatch
	}

	request := &rest.Request{
		Method:             http.MethodPut,
		Endpoint:           rest.EndpointFromPath(opts.Path),
		ContentType:        opts.ContentType,
		Body:               opts.Body,
		ContentLength:      opts.ContentLength,
		Header:             header,
		ExpectedStatusCode: http.StatusNoContent,
		Timeout:            rest.NoTimeout,
	}

	response, err := c.client.Execute(ctx, request)
	if err != nil {
		return nil, err
	}

	attrs := attrsFromHeader(opts.Path, response.Header)
	attrs.Size = opts.ContentLength
	attrs.ContentType = string(opts.ContentType)

	// The service computes its own digest of what it stored, prefer it when returned
	if attrs.ContentMD5 == "" {
		attrs.ContentMD5 = digest
	}

	// Durability is only echoed on metadata responses, fall back to what was requested
	if attrs.Durability == 0 {
		attrs.Durability = opts.DurabilityLevel
	}

	return attrs, nil
}

func (c *NSClient) GetObject(ctx context.Context, opts GetObjectOptions) (*Object, error) {
	request := &rest.Request{
		Method:             http.MethodGet,
		Endpoint:           rest.EndpointFromPath(opts.Path),
		ExpectedStatusCode: http.StatusOK,
		Timeout:            rest.NoTimeout,
	}

	if opts.ByteRange != nil {
		request.Header = map[string]string{"Range": fmt.Sprintf("bytes=%d-%d", opts.ByteRange.Start, opts.ByteRange.End)}
		request.ExpectedStatusCode = http.StatusPartialContent
	}

	resp, err := c.client.Do(ctx, request)
	if err != nil {
		return nil, err
	}

	attrs := attrsFromHeader(opts.Path, resp.Header)

	// Chunked responses report a length of -1, leave the size unset in that case
	attrs.Size = max(resp.ContentLength, 0)

	return &Object{ObjectAttrs: *attrs, Body: resp.Body}, nil
}

func (c *NSClient) GetObjectAttrs(ctx context.Context, opts GetObjectAttrsOptions) (*ObjectAttrs, error) {
	request := &rest.Request{
		Method:             http.MethodHead,
		Endpoint:           rest.EndpointFromPath(opts.Path),
		ExpectedStatusCode: http.StatusOK,
	}

	response, err := c.client.Execute(ctx, request)
	if err != nil {
		// Metadata responses carry no error body, convert the status into something the caller can branch on
		if serviceError, ok := rest.IsServiceError(err); ok && serviceError.Status == http.StatusNotFound {
			return nil, &NotFoundError{Path: opts.Path}
		}

		return nil, err
	}

	attrs := attrsFromHeader(opts.Path, response.Header)

	if length := response.Header.Get("Content-Length"); length != "" {
		attrs.Size, _ = strconv.ParseInt(length, 10, 64)
	}

	return attrs, nil
}

func (c *NSClient) DeleteObject(ctx context.Context, opts DeleteObjectOptions) error {
	return c.delete(ctx, opts.Path)
}

func (c *NSClient) DeleteDirectory(ctx context.Context, opts DeleteDirectoryOptions) error {
	return c.delete(ctx, opts.Path)
}

// delete removes the entry at the given path, the service distinguishes objects/directories itself.
func (c *NSClient) delete(ctx context.Context, path string) error {
	request := &rest.Request{
		Method:             http.MethodDelete,
		Endpoint:           rest.EndpointFromPath(path),
		ExpectedStatusCode: http.StatusNoContent,
	}

	_, err := c.client.Execute(ctx, request)

	return err
}

func (c *NSClient) PutDirectory(ctx context.Context, opts PutDirectoryOptions) error {
	request := &rest.Request{
		Method:             http.MethodPut,
		Endpoint:           rest.EndpointFromPath(opts.Path),
		ContentType:        contentTypeDirectory,
		ExpectedStatusCode: http.StatusNoContent,
	}

	_, err := c.client.Execute(ctx, request)

	return err
}

func (c *NSClient) PutSnapLink(ctx context.Context, opts PutSnapLinkOptions) error {
	request := &rest.Request{
		Method:             http.MethodPut,
		Endpoint:           rest.EndpointFromPath(opts.LinkPath),
		ContentType:        contentTypeSnapLink,
		Header:             map[string]string{"Location": opts.SourcePath},
		ExpectedStatusCode: http.StatusNoContent,
	}

	_, err := c.client.Execute(ctx, request)

	return err
}

func (c *NSClient) ListDirectory(ctx context.Context, opts ListDirectoryOptions) (*DirectoryListing, error) {
	query := make(url.Values)

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	if opts.Marker != "" {
		query.Set("marker", opts.Marker)
	}

	request := &rest.Request{
		Method:             http.MethodGet,
		Endpoint:           rest.EndpointFromPath(opts.Path),
		QueryParameters:    query,
		ExpectedStatusCode: http.StatusOK,
	}

	response, err := c.client.Execute(ctx, request)
	if err != nil {
		return nil, err
	}

	entries, err := decodeListing(request.Endpoint, response.Body)
	if err != nil {
		return nil, err
	}

	listing := &DirectoryListing{Entries: entries}

	if size := response.Header.Get("Result-Set-Size"); size != "" {
		listing.ResultSetSize, _ = strconv.Atoi(size)
	}

	return listing, nil
}

func (c *NSClient) IterateDirectory(ctx context.Context, opts IterateDirectoryOptions) error {
	return iterateDirectory(ctx, c, opts)
}

// contentMD5 returns the base64 encoded MD5 digest of the given body, rewinding it afterwards so it may be uploaded.
func contentMD5(body io.ReadSeeker) (string, error) {
	if body == nil {
		return "", nil
	}

	digest := md5.New()

	if _, err := io.Copy(digest, body); err != nil {
		return "", err
	}

	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(digest.Sum(nil)), nil
}

// attrsFromHeader populates object attributes from the services response headers.
func attrsFromHeader(path string, header http.Header) *ObjectAttrs {
	attrs := &ObjectAttrs{
		Path:        path,
		ETag:        header.Get("Etag"),
		ContentType: header.Get("Content-Type"),
		ContentMD5:  header.Get("Content-Md5"),
	}

	if computed := header.Get("Computed-Md5"); computed != "" {
		attrs.ContentMD5 = computed
	}

	if durability := header.Get("Durability-Level"); durability != "" {
		attrs.Durability, _ = strconv.Atoi(durability)
	}

	if modified := header.Get("Last-Modified"); modified != "" {
		attrs.LastModified, _ = time.Parse(http.TimeFormat, modified)
	}

	return attrs
}

// decodeListing decodes the services line delimited JSON directory listing, rejecting unrecognized shapes.
func decodeListing(endpoint rest.Endpoint, body []byte) ([]*DirEntry, error) {
	entries := make([]*DirEntry, 0)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry DirEntry

		err := json.Unmarshal(line, &entry)
		if err != nil || entry.Name == "" || !entry.Type.valid() {
			return nil, rest.NewDecodeServiceError(
				http.MethodGet,
				endpoint,
				http.StatusOK,
				fmt.Sprintf("invalid directory entry: %s", line),
			)
		}

		entries = append(entries, &entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}

	return entries, nil
}
