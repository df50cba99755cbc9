package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrPipeline matches every *PipelineError.
	ErrPipeline = errors.New("pipeline failed")

	// ErrInvalidTransition matches every *TransitionError.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrEmptyQuestion is returned by Ask for blank questions.
	ErrEmptyQuestion = errors.New("question is empty")
)

// PipelineError reports the state an Ask invocation failed in.
type PipelineError struct {
	State State
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed in %s: %v", e.State, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func (e *PipelineError) Is(target error) bool { return target == ErrPipeline }

// TransitionError reports an event that is not valid in a state.
type TransitionError struct {
	State State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s in %s", ErrInvalidTransition, e.Event, e.State)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
