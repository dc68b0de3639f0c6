package patcher

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeRequired indicates a registration without an action type.
	ErrTypeRequired = errors.New("patcher: action type must not be empty")
	// ErrPatcherRequired indicates a registration without a transformation.
	ErrPatcherRequired = errors.New("patcher: patcher must not be nil")
	// ErrRegistryRequired indicates a factory bound to a nil registry.
	ErrRegistryRequired = errors.New("patcher: registry is required")
	// ErrDuplicateScope indicates a chain built with two registries of the same
	// name.
	ErrDuplicateScope = errors.New("patcher: registry names must be unique")
	// ErrPayloadType indicates a dispatched payload that cannot be resolved to
	// the type a patcher was registered with.
	ErrPayloadType = errors.New("patcher: payload type mismatch")
)

// PayloadError describes a payload that could not be converted for a typed
// patcher.
type PayloadError struct {
	Type string
	Want string
	Got  string
	Err  error
}

func (e *PayloadError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("patcher: action %q payload want=%s got=%s: %v", e.Type, e.Want, e.Got, e.Err)
	}
	return fmt.Sprintf("patcher: action %q payload want=%s got=%s", e.Type, e.Want, e.Got)
}

func (e *PayloadError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrPayloadType}
	}
	return []error{ErrPayloadType, e.Err}
}
