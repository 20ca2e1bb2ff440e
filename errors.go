package relay

import (
	"errors"
	"fmt"
)

// Error is the typed failure returned across the relay API. Callers branch on
// Code; Err carries the transport, driver or decode error underneath.
type Error struct {
	Code    string // one of the ErrCode* constants
	Message string
	Err     error
}

// Error renders "CODE: message" with the cause appended when present.
func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes.
const (
	// ErrCodeNoData indicates no data was found. For identity lookups this is
	// a lookup miss and not a failure.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeConnection indicates the broker handshake or transport failed.
	ErrCodeConnection = "CONNECTION_ERROR"

	// ErrCodeBrokerRejected indicates the broker acknowledged the connection
	// with a non-success reason code.
	ErrCodeBrokerRejected = "BROKER_REJECTED_CONNECTION"

	// ErrCodeSubscription indicates a batch or single subscribe failed.
	ErrCodeSubscription = "SUBSCRIPTION_ERROR"

	// ErrCodePayloadDecode indicates a malformed inbound payload.
	ErrCodePayloadDecode = "PAYLOAD_DECODE_ERROR"

	// ErrCodePublish indicates the broker rejected or failed to queue a publish.
	ErrCodePublish = "PUBLISH_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned by repositories on a lookup miss. Identity
	// resolution treats it as "unknown", not as a failure.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrNotConnected is returned by publish and subscribe while the broker
	// session is not in the Connected state.
	ErrNotConnected = &Error{
		Code:    ErrCodePublish,
		Message: "broker session is not connected",
	}

	// ErrAlreadyConnected is returned when Connect is called on a live session.
	ErrAlreadyConnected = &Error{
		Code:    ErrCodeConnection,
		Message: "broker session is already connecting or connected",
	}

	// ErrClosed is returned once the relay has been shut down.
	ErrClosed = &Error{
		Code:    ErrCodeConnection,
		Message: "relay is closed",
	}
)

// NewError builds an Error without a cause.
func NewError(code, message string) *Error {
	return NewErrorWithCause(code, message, nil)
}

// NewErrorWithCause builds an Error around cause.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// IsNoData reports whether the outermost *Error in err's chain is a lookup
// miss. A database failure wrapping a miss is still a failure.
func IsNoData(err error) bool {
	var relayErr *Error
	return errors.As(err, &relayErr) && relayErr.Code == ErrCodeNoData
}

// HasCode reports whether err, or any error it wraps, is an *Error with the given code.
func HasCode(err error, code string) bool {
	for err != nil {
		var relayErr *Error
		if !errors.As(err, &relayErr) {
			return false
		}
		if relayErr.Code == code {
			return true
		}
		err = relayErr.Err
	}
	return false
}
