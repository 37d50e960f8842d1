package monitor

import (
	"errors"
	"fmt"
)

// Pipeline stages named in StageError
const (
	StageFetch     = "fetch"
	StageLocate    = "locate"
	StageDecode    = "decode"
	StageResolve   = "resolve"
	StageCalculate = "calculate"
)

var (
	// ErrMissingPayload is returned when the located instruction carries no data to decode
	ErrMissingPayload = errors.New("instruction has no payload")
	// ErrAccountLayout is returned when the instruction references too few accounts
	ErrAccountLayout = errors.New("unexpected account layout")
)

// StageError records which pipeline stage failed for which transaction
type StageError struct {
	Stage     string
	Signature string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Signature, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage, signature string, err error) error {
	return &StageError{Stage: stage, Signature: signature, Err: err}
}
