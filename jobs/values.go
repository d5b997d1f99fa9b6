// Package jobs exposes a client for orchestrating server-side compute jobs; job state lives server-side, the client
// drives the lifecycle (create, stream inputs, poll to a terminal state, collect results).
package jobs

import (
	"time"
)

// PhaseType is the kind of phase being described.
type PhaseType string

const (
	// PhaseTypeMap runs the phase once per input object.
	PhaseTypeMap PhaseType = "map"

	// PhaseTypeReduce runs the phase over the aggregated output of the previous phase.
	PhaseTypeReduce PhaseType = "reduce"
)

// Phase describes a single execution phase of a job.
type Phase struct {
	// Type of the phase, the service default is 'map'.
	Type PhaseType `json:"type,omitempty"`

	// Exec is the command executed for this phase.
	Exec string `json:"exec"`

	// Init is an optional command run once per compute zone before any tasks execute.
	Init string `json:"init,omitempty"`

	// Count is the number of reducers for a reduce phase.
	Count int `json:"count,omitempty"`

	// Memory is the amount of memory (in MiB) given to the phases compute zones.
	Memory int `json:"memory,omitempty"`

	// Disk is the amount of disk (in GiB) given to the phases compute zones.
	Disk int `json:"disk,omitempty"`
}

// State is the lifecycle state of a job as reported by the service.
type State string

const (
	// StateQueued the job is waiting to be scheduled.
	StateQueued State = "queued"

	// StateRunning the job is executing.
	StateRunning State = "running"

	// StateDone the job completed with every input processed successfully.
	StateDone State = "done"

	// StateDoneWithErrors the job completed but one or more inputs failed; a normal terminal outcome, inspect the
	// error records to determine which inputs were affected.
	StateDoneWithErrors State = "done-with-errors"

	// StateFailed the job did not run to completion, for example because it was cancelled.
	StateFailed State = "failed"

	// StateInputsOpen the handles input stream is still accepting paths; tracked client-side.
	StateInputsOpen State = "inputs-open"

	// StateInputsClosed the handles input stream has been ended; tracked client-side.
	StateInputsClosed State = "inputs-closed"
)

// Terminal returns a boolean indicating whether the state is one the job will never leave.
func (s State) Terminal() bool {
	return s == StateDone || s == StateDoneWithErrors || s == StateFailed
}

// Stats are the progress counters the service maintains for a job.
type Stats struct {
	Errors    int `json:"errors"`
	Outputs   int `json:"outputs"`
	Retries   int `json:"retries"`
	Tasks     int `json:"tasks"`
	TasksDone int `json:"tasksDone"`
}

// Status is a point-in-time snapshot of a job as reported by the service, it's re-fetched per poll and never treated
// as authoritative by the client.
type Status struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Cancelled   bool      `json:"cancelled"`
	InputDone   bool      `json:"inputDone"`
	Stats       Stats     `json:"stats"`
	TimeCreated time.Time `json:"timeCreated"`
	TimeDone    time.Time `json:"timeDone,omitempty"`
}

// normalize maps the raw service state into the client taxonomy; the service reports 'done' regardless of per-input
// failures, and flags cancellation separately rather than via the state.
func (s *Status) normalize() {
	if s.Cancelled {
		s.State = StateFailed
		return
	}

	if s.State == StateDone && s.Stats.Errors > 0 {
		s.State = StateDoneWithErrors
	}
}

// ErrorRecord binds a failed input to the phase it failed in, decoded from the services line delimited JSON error
// report.
type ErrorRecord struct {
	// Phase is the index of the phase the failure occurred in.
	Phase int `json:"phase"`

	// Input is the namespace path of the input object which failed.
	Input string `json:"input"`

	// Code is the machine readable failure code.
	Code string `json:"code"`

	// Message is the human readable failure message.
	Message string `json:"message"`

	// Stderr is the namespace path of an object holding the failing commands stderr, when captured.
	Stderr string `json:"stderr,omitempty"`
}
