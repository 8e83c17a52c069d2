package myftp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoggedIn is wrapped by operations attempted before a successful Connect.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrClosed is wrapped by operations attempted after Close.
	ErrClosed = errors.New("session closed")
)

// ConfigurationError reports a missing or invalid setting passed to New.
type ConfigurationError struct {
	// Field is the configuration key at fault (e.g., "username")
	Field string

	// Reason describes the problem
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("myftp: invalid configuration: %s %s", e.Field, e.Reason)
}

// ConnectionError reports a failure to establish a logged-in session.
type ConnectionError struct {
	// Op is the step that failed: "dial", "login" or "passive"
	Op string

	// Addr is the server address
	Addr string

	// Err is the underlying transport error
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("myftp: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// OperationError reports a failed file or directory operation.
type OperationError struct {
	// Op is the session method, e.g. "upload" or "mkdir"
	Op string

	// Path is the remote path involved, if any
	Path string

	// Err is the underlying error: ErrNotLoggedIn, ErrClosed, a transport
	// error such as *ftpclient.ProtocolError, or a local I/O error
	Err error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("myftp: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("myftp: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
