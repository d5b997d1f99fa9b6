package jobs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/manta-community/manta-go/log"
	"github.com/manta-community/manta-go/rest"
)

// DefaultPollInterval is the interval 'Wait' polls the jobs status at when the caller didn't supply one.
const DefaultPollInterval = time.Second

// Job is a handle to a server-side job. The handle tracks the state of its input stream, everything else is fetched
// from the service on demand.
type Job struct {
	client  *rest.Client
	logger  log.WrappedLogger
	account string
	id      string

	lock       sync.Mutex
	inputsOpen bool
	status     *Status
}

// ID returns the service assigned job id.
func (j *Job) ID() string {
	return j.id
}

// AddInputs appends the given namespace paths to the jobs input stream, the order given is the order the service
// processes them in. May be called any number of times until the input stream is ended.
//
// NOTE: Appending inputs is not idempotent so it's never automatically retried, a blind retry could duplicate inputs.
func (j *Job) AddInputs(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("at least one input path is required")
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	if !j.inputsOpen {
		return &InvalidStateError{Op: "add inputs", State: j.lifecycleStateLocked()}
	}

	body := strings.Join(paths, "\n") + "\n"

	request := &rest.Request{
		Method:             http.MethodPost,
		Endpoint:           endpointJobInput.Format(j.account, j.id),
		ContentType:        rest.ContentTypePlainText,
		Body:               strings.NewReader(body),
		ContentLength:      int64(len(body)),
		ExpectedStatusCode: http.StatusNoContent,
	}

	_, err := j.client.Execute(ctx, request)

	return err
}

// EndInput signals that no more inputs will be added; irreversible, adding inputs afterwards fails.
func (j *Job) EndInput(ctx context.Context) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	if !j.inputsOpen {
		return &InvalidStateError{Op: "end input", State: j.lifecycleStateLocked()}
	}

	request := &rest.Request{
		Method:             http.MethodPost,
		Endpoint:           endpointJobEnd.Format(j.account, j.id),
		ExpectedStatusCode: http.StatusAccepted,
	}

	if _, err := j.client.Execute(ctx, request); err != nil {
		return err
	}

	j.inputsOpen = false

	return nil
}

// Status fetches the current status of the job from the service.
func (j *Job) Status(ctx context.Context) (*Status, error) {
	request := &rest.Request{
		Method:             http.MethodGet,
		Endpoint:           endpointJobStatus.Format(j.account, j.id),
		ExpectedStatusCode: http.StatusOK,
	}

	response, err := j.client.Execute(ctx, request)
	if err != nil {
		return nil, err
	}

	var status Status

	if err := json.Unmarshal(response.Body, &status); err != nil {
		return nil, rest.NewDecodeServiceError(
			http.MethodGet,
			request.Endpoint,
			response.StatusCode,
			fmt.Sprintf("invalid job status: %s", response.Body),
		)
	}

	status.normalize()

	j.recordStatus(&status)

	return &status, nil
}

// WaitOptions encapsulates the options available when using the 'Wait' function.
type WaitOptions struct {
	// PollInterval is the interval the jobs status is polled at.
	// Default is one second.
	PollInterval time.Duration

	// Timeout bounds the overall wait, zero means wait indefinitely. The job keeps running server-side when the
	// timeout elapses, 'Wait' may be called again to resume waiting.
	Timeout time.Duration
}

func (w *WaitOptions) defaults() {
	if w.PollInterval == 0 {
		w.PollInterval = DefaultPollInterval
	}
}

// Wait polls the jobs status until the service reports a terminal state. Transient poll failures are logged and
// swallowed, the job is simply polled again at the next interval; service errors indicate the job is gone and are
// surfaced immediately.
func (j *Job) Wait(ctx context.Context, opts WaitOptions) (*Result, error) {
	opts.defaults()

	var timeout <-chan time.Time

	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()

		timeout = timer.C
	}

	for {
		status, err := j.Status(ctx)

		switch {
		case err == nil && status.State.Terminal():
			return &Result{State: status.State, Stats: status.Stats, job: j}, nil
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			if _, ok := rest.IsServiceError(err); ok {
				return nil, err
			}

			j.logger.Warnf("(Jobs) Failed to poll status of job '%s' due to error '%s', will repoll", j.id, err)
		}

		interval := time.NewTimer(opts.PollInterval)

		select {
		case <-ctx.Done():
			interval.Stop()
			return nil, ctx.Err()
		case <-timeout:
			interval.Stop()
			return nil, &TimeoutError{ID: j.id, Timeout: opts.Timeout}
		case <-interval.C:
		}
	}
}

// Outputs streams the namespace paths of the jobs output objects to the given function; only valid once the job has
// been observed in a terminal state.
func (j *Job) Outputs(ctx context.Context, fn func(path string) error) error {
	if err := j.ensureTerminal("fetch outputs"); err != nil {
		return err
	}

	request := &rest.Request{
		Method:             http.MethodGet,
		Endpoint:           endpointJobOut.Format(j.account, j.id),
		ExpectedStatusCode: http.StatusOK,
	}

	response, err := j.client.Execute(ctx, request)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(response.Body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := fn(line); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Errors streams the jobs per-input error records to the given function; only valid once the job has been observed in
// a terminal state. A job which is 'done-with-errors' yields one record per failed input.
func (j *Job) Errors(ctx context.Context, fn func(record *ErrorRecord) error) error {
	if err := j.ensureTerminal("fetch errors"); err != nil {
		return err
	}

	request := &rest.Request{
		Method:             http.MethodGet,
		Endpoint:           endpointJobErr.Format(j.account, j.id),
		ExpectedStatusCode: http.StatusOK,
	}

	response, err := j.client.Execute(ctx, request)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(response.Body))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record ErrorRecord

		if err := json.Unmarshal(line, &record); err != nil {
			return rest.NewDecodeServiceError(
				http.MethodGet,
				request.Endpoint,
				response.StatusCode,
				fmt.Sprintf("invalid error record: %s", line),
			)
		}

		if err := fn(&record); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// Cancel issues a best-effort cancellation of the job. The service doesn't stop the job immediately, subsequent polls
// may briefly still report it running, callers must poll to confirm.
func (j *Job) Cancel(ctx context.Context) error {
	request := &rest.Request{
		Method:             http.MethodPost,
		Endpoint:           endpointJobCancel.Format(j.account, j.id),
		ExpectedStatusCode: http.StatusAccepted,
	}

	if _, err := j.client.Execute(ctx, request); err != nil {
		return err
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	// Cancellation implicitly ends the input stream
	j.inputsOpen = false

	return nil
}

// recordStatus remembers the latest observed status, it gates access to the result endpoints.
func (j *Job) recordStatus(status *Status) {
	j.lock.Lock()
	defer j.lock.Unlock()

	j.status = status

	if status.InputDone || status.State.Terminal() {
		j.inputsOpen = false
	}
}

// ensureTerminal returns an 'InvalidStateError' unless the job has been observed in a terminal state.
func (j *Job) ensureTerminal(op string) error {
	j.lock.Lock()
	defer j.lock.Unlock()

	if j.status == nil || !j.status.State.Terminal() {
		return &InvalidStateError{Op: op, State: j.lifecycleStateLocked()}
	}

	return nil
}

// lifecycleStateLocked returns the most precise state known without hitting the service.
func (j *Job) lifecycleStateLocked() State {
	if j.status != nil {
		return j.status.State
	}

	if j.inputsOpen {
		return StateInputsOpen
	}

	return StateInputsClosed
}

// Result is the terminal outcome of a job as observed by 'Wait'.
//
// NOTE: 'StateDoneWithErrors' is a normal terminal outcome, not a Go error; inspect 'Errors' to determine which
// inputs failed.
type Result struct {
	State State
	Stats Stats

	job *Job
}

// Outputs streams the namespace paths of the jobs output objects to the given function.
func (r *Result) Outputs(ctx context.Context, fn func(path string) error) error {
	return r.job.Outputs(ctx, fn)
}

// Errors streams the jobs per-input error records to the given function.
func (r *Result) Errors(ctx context.Context, fn func(record *ErrorRecord) error) error {
	return r.job.Errors(ctx, fn)
}
