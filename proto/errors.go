package proto

import (
	"errors"
	"fmt"
	"strconv"
)

// Error types for beanstalkd operations.
// Every failure returned by this module is one of the three kinds below.

// ConnectionError wraps failures of the underlying connection.
//
// Common causes:
//   - Address resolution or dial failure
//   - Read or write failure, connection reset, EOF
//   - Operation attempted on a closed client
//   - Circuit breaker open
//
// Connection handling: connection is broken, CLOSE and potentially RECONNECT
type ConnectionError struct {
	Op  string // Operation that failed (dial, read, write, or a command name)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// UnexpectedResponseError reports a reply that violates the protocol contract.
//
// Common causes:
//   - Empty or unknown status line
//   - Body shorter or longer than announced
//   - Missing or non-numeric parameter
//   - Body that is not valid UTF-8 or not of the expected shape
//   - Status that is neither a success nor an expected failure for the command
//
// Connection handling: framing is no longer reliable, CLOSE connection
type UnexpectedResponseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *UnexpectedResponseError) Error() string {
	if e.Err != nil {
		return "unexpected response: " + e.Message + ": " + e.Err.Error()
	}
	return "unexpected response: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *UnexpectedResponseError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the reply stream may be out of sync
func (e *UnexpectedResponseError) ShouldCloseConnection() bool {
	return true
}

// CommandFailedError is an expected, recoverable failure reported by the
// server, such as NOT_FOUND for a delete or TIMED_OUT for a reserve.
//
// Connection handling: connection can be REUSED
type CommandFailedError struct {
	Command CommandKind
	Status  Status
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.Command, e.Status)
}

// ShouldCloseConnection returns false - the exchange completed normally
func (e *CommandFailedError) ShouldCloseConnection() bool {
	return false
}

// InvalidTubeNameError is returned by ValidateTubeName.
// The name was rejected client-side, nothing was sent.
type InvalidTubeNameError struct {
	Message string
}

func (e *InvalidTubeNameError) Error() string {
	return e.Message
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection is a helper function to determine if an error
// requires closing the connection.
//
// Returns true for ConnectionError, UnexpectedResponseError and unknown errors.
// Returns false for CommandFailedError and nil.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}

// IsStatus reports whether err is a CommandFailedError carrying status.
func IsStatus(err error, status Status) bool {
	var e *CommandFailedError
	return errors.As(err, &e) && e.Status == status
}

func quote(s string) string {
	return strconv.Quote(s)
}
