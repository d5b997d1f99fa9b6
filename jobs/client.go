package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/manta-community/manta-go/log"
	"github.com/manta-community/manta-go/rest"
)

// Endpoints for the job lifecycle, every endpoint is rooted at the account requests are signed on behalf of. The
// 'live' endpoints address the job whilst the service still has it archived in-flight.
const (
	endpointJobs      = rest.Endpoint("/%s/jobs")
	endpointJobInput  = rest.Endpoint("/%s/jobs/%s/live/in")
	endpointJobEnd    = rest.Endpoint("/%s/jobs/%s/live/in/end")
	endpointJobStatus = rest.Endpoint("/%s/jobs/%s/live/status")
	endpointJobOut    = rest.Endpoint("/%s/jobs/%s/live/out")
	endpointJobErr    = rest.Endpoint("/%s/jobs/%s/live/err")
	endpointJobCancel = rest.Endpoint("/%s/jobs/%s/live/cancel")
)

// ClientOptions encapsulates the options available when creating a new job client.
type ClientOptions struct {
	// Client dispatches the underlying REST requests, required.
	Client *rest.Client

	// Logger is the passed Logger struct that implements the Log method for logger the user wants to use.
	Logger log.Logger
}

// Client orchestrates the compute job lifecycle.
type Client struct {
	client *rest.Client
	logger log.WrappedLogger
}

// NewClient creates a new job client using the given options.
func NewClient(options ClientOptions) (*Client, error) {
	if options.Client == nil {
		return nil, errors.New("a REST client is required")
	}

	return &Client{client: options.Client, logger: log.NewWrappedLogger(options.Logger)}, nil
}

// CreateJobOptions encapsulates the options available when using the 'Create' function.
type CreateJobOptions struct {
	// Name is an optional human readable label for the job.
	Name string

	// Phases describe the commands the job runs, at least one is required.
	Phases []*Phase
}

// Create submits a new job, returning a handle with its input stream open.
//
// NOTE: Job creation is not idempotent so it's never automatically retried, a caller which retries must be prepared
// to reap duplicate jobs.
func (c *Client) Create(ctx context.Context, opts CreateJobOptions) (*Job, error) {
	if len(opts.Phases) == 0 {
		return nil, errors.New("at least one phase is required")
	}

	body, err := json.Marshal(struct {
		Name   string   `json:"name,omitempty"`
		Phases []*Phase `json:"phases"`
	}{Name: opts.Name, Phases: opts.Phases})
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}

	request := &rest.Request{
		Method:             http.MethodPost,
		Endpoint:           endpointJobs.Format(c.client.Account()),
		ContentType:        rest.ContentTypeJSON,
		Body:               bytes.NewReader(body),
		ContentLength:      int64(len(body)),
		ExpectedStatusCode: http.StatusCreated,
	}

	response, err := c.client.Execute(ctx, request)
	if err != nil {
		return nil, err
	}

	location := response.Header.Get("Location")
	if location == "" {
		return nil, rest.NewDecodeServiceError(
			http.MethodPost,
			request.Endpoint,
			response.StatusCode,
			"job created but no location returned",
		)
	}

	return c.newJob(path.Base(location)), nil
}

// Job returns a handle attached to an existing job, for example one created by an earlier process.
func (c *Client) Job(id string) *Job {
	return c.newJob(id)
}

func (c *Client) newJob(id string) *Job {
	return &Job{client: c.client, logger: c.logger, account: c.client.Account(), id: id, inputsOpen: true}
}
