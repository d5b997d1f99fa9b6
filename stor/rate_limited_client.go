package stor

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/manta-community/manta-go/ratelimit"
)

// RateLimitedClient implements the 'Client' interface mostly by deferring to the underlying client, but for the
// methods which involve uploading/downloading object content, the rate limiter is used to control the rate of data
// transfer.
//
// The rate-limited methods are:
//
// - GetObject
// - PutObject
type RateLimitedClient struct {
	c  Client
	rl *rate.Limiter
}

var _ Client = (*RateLimitedClient)(nil)

// NewRateLimitedClient returns a RateLimitedClient.
func NewRateLimitedClient(c Client, rl *rate.Limiter) *RateLimitedClient {
	return &RateLimitedClient{c: c, rl: rl}
}

func (r *RateLimitedClient) PutObject(ctx context.Context, opts PutObjectOptions) (*ObjectAttrs, error) {
	opts.Body = ratelimit.NewRateLimitedReadSeeker(ctx, opts.Body, r.rl)
	return r.c.PutObject(ctx, opts)
}

func (r *RateLimitedClient) GetObject(ctx context.Context, opts GetObjectOptions) (*Object, error) {
	obj, err := r.c.GetObject(ctx, opts)
	if err != nil {
		return nil, err
	}

	obj.Body = ratelimit.NewRateLimitedReadCloser(ctx, obj.Body, r.rl)

	return obj, nil
}

func (r *RateLimitedClient) GetObjectAttrs(ctx context.Context, opts GetObjectAttrsOptions) (*ObjectAttrs, error) {
	return r.c.GetObjectAttrs(ctx, opts)
}

func (r *RateLimitedClient) DeleteObject(ctx context.Context, opts DeleteObjectOptions) error {
	return r.c.DeleteObject(ctx, opts)
}

func (r *RateLimitedClient) PutDirectory(ctx context.Context, opts PutDirectoryOptions) error {
	return r.c.PutDirectory(ctx, opts)
}

func (r *RateLimitedClient) DeleteDirectory(ctx context.Context, opts DeleteDirectoryOptions) error {
	return r.c.DeleteDirectory(ctx, opts)
}

func (r *RateLimitedClient) PutSnapLink(ctx context.Context, opts PutSnapLinkOptions) error {
	return r.c.PutSnapLink(ctx, opts)
}

func (r *RateLimitedClient) ListDirectory(ctx context.Context, opts ListDirectoryOptions) (*DirectoryListing, error) {
	return r.c.ListDirectory(ctx, opts)
}

func (r *RateLimitedClient) IterateDirectory(ctx context.Context, opts IterateDirectoryOptions) error {
	return r.c.IterateDirectory(ctx, opts)
}
