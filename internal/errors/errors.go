package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a bridge failure.
type ErrorType string

const (
	// TypeConnection covers not connected, connection lost and shutdown.
	TypeConnection ErrorType = "connection_error"
	// TypeTimeout indicates the deadline elapsed with no reply.
	TypeTimeout ErrorType = "timeout_error"
	// TypeToolExecution indicates Unity reported failure for an action.
	TypeToolExecution ErrorType = "tool_execution_error"
	// TypeResourceFetch indicates Unity reported failure for a data fetch.
	TypeResourceFetch ErrorType = "resource_fetch_error"
	// TypeValidation indicates malformed request parameters.
	TypeValidation ErrorType = "validation_error"
)

// BridgeError is the base interface for all bridge errors.
type BridgeError interface {
	error
	Kind() ErrorType
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*ConnectionError)(nil)
	_ BridgeError = (*TimeoutError)(nil)
	_ BridgeError = (*ToolExecutionError)(nil)
	_ BridgeError = (*ResourceFetchError)(nil)
	_ BridgeError = (*ValidationError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates the bridge has no live connection to Unity.
	ErrNotConnected = errors.New("not connected to Unity")

	// ErrAlreadyStarted indicates Start was called while connecting or connected.
	ErrAlreadyStarted = errors.New("bridge already started")

	// ErrShuttingDown indicates the bridge is being stopped.
	ErrShuttingDown = errors.New("bridge shutting down")

	// ErrConnectionLost indicates the channel to Unity closed unexpectedly.
	ErrConnectionLost = errors.New("connection lost")

	// ErrHandshakeRejected indicates Unity refused the handshake.
	ErrHandshakeRejected = errors.New("handshake rejected")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")
)

// ConnectionError indicates the bridge could not reach Unity.
type ConnectionError struct {
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil && e.Reason != "" {
		return fmt.Sprintf("connection error: %s: %v", e.Reason, e.Err)
	}

	if e.Err != nil {
		return fmt.Sprintf("connection error: %v", e.Err)
	}

	return "connection error: " + e.Reason
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Kind implements BridgeError.
func (e *ConnectionError) Kind() ErrorType { return TypeConnection }

// TimeoutError indicates a request received no reply before its deadline.
type TimeoutError struct {
	Method  string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %s", e.Method, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutError) Unwrap() error {
	return ErrRequestTimeout
}

// Kind implements BridgeError.
func (e *TimeoutError) Kind() ErrorType { return TypeTimeout }

// ToolExecutionError indicates Unity reported failure executing a tool.
type ToolExecutionError struct {
	Method  string
	Message string
}

func (e *ToolExecutionError) Error() string {
	return e.Message
}

// Kind implements BridgeError.
func (e *ToolExecutionError) Kind() ErrorType { return TypeToolExecution }

// ResourceFetchError indicates Unity reported failure fetching a resource.
type ResourceFetchError struct {
	Method  string
	Message string
}

func (e *ResourceFetchError) Error() string {
	return e.Message
}

// Kind implements BridgeError.
func (e *ResourceFetchError) Kind() ErrorType { return TypeResourceFetch }

// ValidationError indicates request parameters were rejected before dispatch.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}

	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Kind implements BridgeError.
func (e *ValidationError) Kind() ErrorType { return TypeValidation }

// KindOf returns the ErrorType of the first BridgeError in err's chain.
func KindOf(err error) (ErrorType, bool) {
	var be BridgeError
	if errors.As(err, &be) {
		return be.Kind(), true
	}

	return "", false
}
