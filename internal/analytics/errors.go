package analytics

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is matched by every *EmptyInputError via errors.Is
var ErrEmptyInput = errors.New("no records to analyse")

// EmptyInputError is returned by a statistics component that was given
// zero records; a mode or mean is undefined in that case.
type EmptyInputError struct {
	Component string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s statistics: %s", e.Component, ErrEmptyInput)
}

// Is reports whether target is ErrEmptyInput
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// IsTransient returns false; the same input always fails the same way
func (e *EmptyInputError) IsTransient() bool {
	return false
}

// InvalidFilterError reports a month or weekday name outside the accepted choices
type InvalidFilterError struct {
	Field string
	Value string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid %s filter %q", e.Field, e.Value)
}

// IsTransient returns false as filter errors are permanent
func (e *InvalidFilterError) IsTransient() bool {
	return false
}
