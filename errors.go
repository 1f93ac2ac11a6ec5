package mcpunity

import "github.com/dsarno/mcp-unity/internal/errors"

// Re-export error types from internal package

// ConnectionError indicates the bridge could not reach Unity or lost it.
type ConnectionError = errors.ConnectionError

// TimeoutError indicates Unity did not answer before the request deadline.
type TimeoutError = errors.TimeoutError

// ToolExecutionError indicates Unity reported failure for an action.
type ToolExecutionError = errors.ToolExecutionError

// ResourceFetchError indicates Unity reported failure for a data fetch.
type ResourceFetchError = errors.ResourceFetchError

// ValidationError indicates a malformed request.
type ValidationError = errors.ValidationError

// BridgeError is the base interface for all bridge errors.
type BridgeError = errors.BridgeError

// ErrorType classifies a BridgeError.
type ErrorType = errors.ErrorType

// Error kinds reported by BridgeError.Kind.
const (
	TypeConnection    = errors.TypeConnection
	TypeTimeout       = errors.TypeTimeout
	TypeToolExecution = errors.TypeToolExecution
	TypeResourceFetch = errors.TypeResourceFetch
	TypeValidation    = errors.TypeValidation
)

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates the bridge has no live connection to Unity.
	ErrNotConnected = errors.ErrNotConnected

	// ErrAlreadyStarted indicates Start was called on a running bridge.
	ErrAlreadyStarted = errors.ErrAlreadyStarted

	// ErrShuttingDown indicates a request was cancelled by Stop.
	ErrShuttingDown = errors.ErrShuttingDown

	// ErrConnectionLost indicates the connection to Unity dropped.
	ErrConnectionLost = errors.ErrConnectionLost

	// ErrHandshakeRejected indicates Unity refused the handshake.
	ErrHandshakeRejected = errors.ErrHandshakeRejected

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout
)

// KindOf reports the kind of the first BridgeError in err's chain.
func KindOf(err error) (ErrorType, bool) {
	return errors.KindOf(err)
}
