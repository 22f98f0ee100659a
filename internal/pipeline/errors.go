package pipeline

import "fmt"

// Stages
const (
	StageLoad        = "load"
	StageMatch       = "match"
	StageStore       = "store"
	StageExport      = "export"
	StageDiagnostics = "diagnostics"
)

// StageError is a structural failure that aborted the run
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
