package models

import (
	"errors"
	"fmt"
)

// ErrorKind separates user-input errors from operational failures
type ErrorKind string

const (
	// KindArgument marks invalid input: bad paths, unsupported combinations
	KindArgument ErrorKind = "argument"
	// KindOperation marks a failure while executing an otherwise valid request
	KindOperation ErrorKind = "operation"
)

var (
	ErrInvalidPath           = errors.New("invalid resource")
	ErrBucketRequired        = errors.New("you must use the s3:// syntax with this operation")
	ErrOperationNotSupported = errors.New("operation not supported")
	ErrMustBeDirectory       = errors.New("argument must be a directory")
	ErrFailedToDelete        = errors.New("failed to delete resource")
	ErrArgumentOutOfRange    = errors.New("argument out of range")
	ErrForceRequired         = errors.New("this operation requires --force")
)

// CommandError is returned by the transfer and sync layers for every
// argument or operation failure. It unwraps to one of the sentinels above.
type CommandError struct {
	Kind     ErrorKind
	Err      error
	Resource string
}

func (e *CommandError) Error() string {
	if e.Resource == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Resource)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewArgumentError wraps err as a user-input error about resource
func NewArgumentError(err error, resource string) error {
	return &CommandError{Kind: KindArgument, Err: err, Resource: resource}
}

// NewOperationError wraps err as an operational error about resource
func NewOperationError(err error, resource string) error {
	return &CommandError{Kind: KindOperation, Err: err, Resource: resource}
}

// IsArgument reports whether err is (or wraps) an argument error
func IsArgument(err error) bool {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind == KindArgument
	}
	return false
}
