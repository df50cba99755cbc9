package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrDispatch matches every *DispatchError.
	ErrDispatch = errors.New("dispatch failed")

	// ErrUnknownTool is wrapped when the model selects a tool that was not
	// offered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidRegistry is returned by NewRegistry.
	ErrInvalidRegistry = errors.New("invalid tool registry")
)

// DispatchError reports a failed tool selection.
type DispatchError struct {
	// Tool is the selected tool name, if the model got that far.
	Tool string
	Err  error
}

func (e *DispatchError) Error() string {
	if e.Tool != "" {
		return fmt.Sprintf("dispatching to %q: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("dispatch: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }
