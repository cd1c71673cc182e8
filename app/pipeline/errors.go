package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one of the sequential pipeline steps. Failures are always
// attributed to exactly one stage.
type Stage string

const (
	StagePending      Stage = "Pending"
	StageFetching     Stage = "Fetching"
	StageTranscribing Stage = "Transcribing"
	StageGenerating   Stage = "Generating"
	StagePersisting   Stage = "Persisting"
	StageDone         Stage = "Done"
)

// ErrBusy rejects a submission while another run is in flight for the
// same user. Submissions are rejected, not queued.
var ErrBusy = errors.New("a pipeline run is already in flight for this user")

// StageError attributes a pipeline failure to the stage it originated
// from, wrapping the underlying cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func failed(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
