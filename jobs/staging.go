package jobs

import (
	"context"
	"fmt"

	"github.com/manta-community/manta-go/stor"
)

// AddInputObject uploads the given object via the namespace client then appends it to the jobs input stream.
func (j *Job) AddInputObject(ctx context.Context, client stor.Client, opts stor.PutObjectOptions) error {
	j.lock.Lock()
	inputsOpen := j.inputsOpen
	state := j.lifecycleStateLocked()
	j.lock.Unlock()

	// Don't upload anything if the input can't be appended afterwards
	if !inputsOpen {
		return &InvalidStateError{Op: "add inputs", State: state}
	}

	if _, err := client.PutObject(ctx, opts); err != nil {
		return fmt.Errorf("failed to stage input object: %w", err)
	}

	return j.AddInputs(ctx, opts.Path)
}

// OutputObjects fetches each of the jobs output objects via the namespace client and streams them to the given
// function, closing each body after the function returns.
func (r *Result) OutputObjects(ctx context.Context, client stor.Client, fn func(object *stor.Object) error) error {
	return r.Outputs(ctx, func(path string) error {
		object, err := client.GetObject(ctx, stor.GetObjectOptions{Path: path})
		if err != nil {
			return fmt.Errorf("failed to fetch output object: %w", err)
		}
		defer object.Body.Close()

		return fn(object)
	})
}
